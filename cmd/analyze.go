package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/identity"
	"github.com/ketankauntia/gsoc-orgs/internal/report"
)

var (
	analyzeRaw  string
	analyzeOut  string
	analyzeTopN int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "List URLs shared by organizations with different names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := readOrganizations(ctx, analyzeRaw)
		if err != nil {
			return err
		}
		env, err := initReconcile(cfg.Reconcile, nil)
		if err != nil {
			return err
		}

		idx := env.Normalizer.BuildIndex(raw)
		shared := idx.Shared()
		zap.L().Info("identity keys indexed",
			zap.Int("records", len(raw)),
			zap.Int("keys", idx.Len()),
			zap.Int("shared", len(shared)),
		)

		if analyzeOut != "" {
			if err := report.WriteJSON(analyzeOut, shared); err != nil {
				return err
			}
		}
		formatSharedKeys(os.Stdout, shared, analyzeTopN)
		return nil
	},
}

// formatSharedKeys writes up to topN shared keys to w. topN <= 0 prints
// all of them.
func formatSharedKeys(out io.Writer, shared []identity.SharedKey, topN int) {
	if len(shared) == 0 {
		_, _ = fmt.Fprintln(out, "No shared URLs found.")
		return
	}
	if topN > 0 && len(shared) > topN {
		shared = shared[:topN]
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tRECORDS\tNAMES")
	_, _ = fmt.Fprintln(w, "---\t-------\t-----")
	for _, s := range shared {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", s.Key, len(s.Records), strings.Join(s.Names, " | "))
	}
	_ = w.Flush()
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRaw, "raw", "", "JSON file of raw organization records (required)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the full analysis as JSON to this file")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 20, "number of shared URLs to print (0 for all)")
	_ = analyzeCmd.MarkFlagRequired("raw")
	rootCmd.AddCommand(analyzeCmd)
}
