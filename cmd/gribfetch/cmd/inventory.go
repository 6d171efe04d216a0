package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/httpclient"
	"github.com/javi11/gribfetch/internal/inventory"
	"github.com/javi11/gribfetch/internal/matcher"
	"github.com/javi11/gribfetch/internal/syncer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	inventoryMatch bool
)

func init() {
	inventoryCmd := &cobra.Command{
		Use:   "inventory <url|path>",
		Short: "Print the messages of a GRIB2 index file",
		Long: `Parse a .idx inventory from a URL or a local file and print every
message with its byte range. With --match, the configured fields are resolved
against it and the resulting download plan is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: runInventory,
	}

	inventoryCmd.Flags().BoolVar(&inventoryMatch, "match", false, "resolve the configured fields against the inventory")

	rootCmd.AddCommand(inventoryCmd)
}

func runInventory(cmd *cobra.Command, args []string) error {
	client := httpclient.NewDefault()

	inv, err := syncer.FetchInventory(context.Background(), client, afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printInventory(out, inv)

	if !inventoryMatch {
		return nil
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	m, err := matcher.New(cfg.Fields, matcher.Options{
		Strict:         cfg.FieldsStrict,
		ValidateTiming: cfg.GetValidateTiming(),
	})
	if err != nil {
		return err
	}

	plan, err := m.Resolve(inv)
	var missing *matcher.MissingFieldsError
	if err != nil && !errors.As(err, &missing) {
		return err
	}

	fmt.Fprintln(out)
	printPlan(out, plan)

	return err
}

func printInventory(w io.Writer, inv inventory.Inventory) {
	for _, e := range inv {
		fmt.Fprintf(w, "%4d  %-24s %s\n", e.MessageNumber(), e.Range().String(), e.Key())
	}
}

func printPlan(w io.Writer, plan *matcher.Plan) {
	for i, field := range plan.Fields {
		fmt.Fprintf(w, "%-12s %-24s %s\n", field, plan.Ranges[i].String(), plan.Keys[i])
	}
	if len(plan.Missing) > 0 {
		fmt.Fprintf(w, "missing: %s\n", strings.Join(plan.Missing, ", "))
	}
	if plan.Empty() {
		fmt.Fprintln(w, "nothing to download")
	}
}
