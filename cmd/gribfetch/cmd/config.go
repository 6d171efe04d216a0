package cmd

import (
	"fmt"
	"os"

	"github.com/javi11/gribfetch/internal/config"
	"github.com/spf13/cobra"
)

var (
	configForce bool
)

// exampleFields is the field list written by "config init"
var exampleFields = []config.FieldPattern{
	{Name: "t2m", Pattern: `TMP:2 m above ground:\d+ hour fcst`},
	{Name: "u10", Pattern: `UGRD:10 m above ground:\d+ hour fcst`},
	{Name: "v10", Pattern: `VGRD:10 m above ground:\d+ hour fcst`},
	{Name: "tp", Pattern: `APCP:surface:0-\d+ hour acc`},
}

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE:  runConfigInit,
	}
	initCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration file loads",
		RunE:  runConfigValidate,
	}

	configCmd.AddCommand(initCmd, validateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configFile); err == nil && !configForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", configFile)
	}

	cfg := config.DefaultConfig()
	cfg.Fields = exampleFields

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.SaveToFile(cfg, configFile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configFile)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d fields, %d steps, %d run hours)\n",
		configFile, len(cfg.Fields), len(cfg.GetSteps()), len(cfg.GetRunHours()))
	return nil
}
