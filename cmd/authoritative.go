package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/archive"
)

var authoritativeCmd = &cobra.Command{
	Use:   "authoritative",
	Short: "Manage the authoritative organization list",
}

var authoritativeFetchURL string

var authoritativeFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the authoritative list into the cache file and the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		url := authoritativeFetchURL
		if url == "" {
			url = cfg.Authoritative.URL
		}
		orgs, err := archive.FetchAuthoritative(ctx, newFetcher(cfg.Archive), url, cfg.Authoritative.CachePath)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ReplaceAuthoritative(ctx, orgs); err != nil {
			return eris.Wrap(err, "authoritative fetch")
		}
		zap.L().Info("authoritative list stored",
			zap.Int("organizations", len(orgs)),
			zap.String("cache", cfg.Authoritative.CachePath),
		)
		return nil
	},
}

func init() {
	authoritativeFetchCmd.Flags().StringVar(&authoritativeFetchURL, "url", "", "list URL (default from config)")
	authoritativeCmd.AddCommand(authoritativeFetchCmd)
	rootCmd.AddCommand(authoritativeCmd)
}
