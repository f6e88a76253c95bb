package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/archive"
)

var importYears []int

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Scrape program years from the GSoC archive into the raw store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		years := importYears
		if len(years) == 0 {
			years = cfg.Archive.Years
		}
		if len(years) == 0 {
			return eris.New("no years to import (--years or GSOC_ARCHIVE_YEARS)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := archive.NewHTTPClient(newFetcher(cfg.Archive), cfg.Archive.BaseURL, cfg.Archive.CurrentYear)
		im := archive.NewImporter(client, st, archive.ImporterOptions{Concurrency: cfg.Archive.Concurrency})

		results, err := im.ImportYears(ctx, years)
		for _, r := range results {
			fmt.Fprintln(os.Stdout, r.String())
		}
		if err != nil {
			return eris.Wrap(err, "import")
		}

		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}
		zap.L().Info("import complete", zap.Int("years", len(results)), zap.Int("failed", failed))
		if failed == len(results) {
			return eris.Errorf("import: all %d years failed", failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().IntSliceVar(&importYears, "years", nil, "program years to import (default from config)")
	rootCmd.AddCommand(importCmd)
}
