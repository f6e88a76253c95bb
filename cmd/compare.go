package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/archive"
	"github.com/ketankauntia/gsoc-orgs/internal/compare"
	"github.com/ketankauntia/gsoc-orgs/internal/report"
)

var (
	compareAuthoritative string
	compareCandidate     string
	compareOut           string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a candidate organization file against the authoritative list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		auth, err := archive.LoadAuthoritative(compareAuthoritative)
		if err != nil {
			return err
		}
		candidates, err := readOrganizations(ctx, compareCandidate)
		if err != nil {
			return err
		}

		r := compare.Compare(auth, candidates)

		out := compareOut
		if out == "" {
			out = cfg.Report.Dir
		}
		paths, err := report.WriteAll(out, r)
		if err != nil {
			return err
		}
		zap.L().Info("reports written", zap.Strings("files", paths))

		report.PrintSummary(os.Stdout, r, cfg.Report.TopN)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareAuthoritative, "authoritative", "", "authoritative list JSON file (required)")
	compareCmd.Flags().StringVar(&compareCandidate, "candidate", "", "candidate organizations JSON file (required)")
	compareCmd.Flags().StringVar(&compareOut, "out", "", "report directory (default from config)")
	_ = compareCmd.MarkFlagRequired("authoritative")
	_ = compareCmd.MarkFlagRequired("candidate")
	rootCmd.AddCommand(compareCmd)
}
