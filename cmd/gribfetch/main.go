package main

import "github.com/javi11/gribfetch/cmd/gribfetch/cmd"

func main() {
	cmd.Execute()
}
