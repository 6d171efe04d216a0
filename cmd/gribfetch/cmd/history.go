package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/javi11/gribfetch/internal/database"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent download results",
		RunE:  runHistory,
	}

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	db, err := initializeDatabase(afero.NewOsFs(), cfg, logger)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("history is disabled: database.path is empty")
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()

	records, err := db.History.ListRecent(ctx, historyLimit)
	if err != nil {
		return err
	}

	counts, err := db.History.CountByStatus(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range records {
		fmt.Fprintf(out, "%s  %-8s %3d attempt(s) %10d bytes %8s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Attempts,
			r.Bytes,
			(time.Duration(r.ElapsedMs) * time.Millisecond).Round(time.Millisecond),
			r.LocalPath)
		if r.ErrorMessage != nil {
			fmt.Fprintf(out, "%21s %s\n", "", *r.ErrorMessage)
		}
	}

	fmt.Fprintf(out, "\nsuccess %d, failed %d, skipped %d\n",
		counts[database.DownloadStatusSuccess],
		counts[database.DownloadStatusFailed],
		counts[database.DownloadStatusSkipped])

	return nil
}
