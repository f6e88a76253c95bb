package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/archive"
	"github.com/ketankauntia/gsoc-orgs/internal/compare"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/reconcile"
	"github.com/ketankauntia/gsoc-orgs/internal/report"
	"github.com/ketankauntia/gsoc-orgs/internal/review"
	"github.com/ketankauntia/gsoc-orgs/internal/store"
	anthropicpkg "github.com/ketankauntia/gsoc-orgs/pkg/anthropic"
)

// Extra files written by reconcile next to the comparison report.
const (
	mergedFile        = "merged_orgs.json"
	alignedFile       = "aligned_orgs.json"
	alignmentFile     = "alignment.json"
	beforeFile        = "comparison_before_alignment.json"
	investigationFile = "investigation.json"
	reviewFile        = "review.json"
)

var (
	reconcileRaw           string
	reconcileAuthoritative string
	reconcileOut           string
	reconcileSave          bool
	reconcileReview        bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Group, merge and align raw records, then compare against the authoritative list",
	Long:  "Reads raw records and the authoritative list from files or the store, runs the reconcile pipeline, writes reports and optionally saves the canonical records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var st store.Store
		if reconcileRaw == "" || reconcileAuthoritative == "" || reconcileSave {
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}

		raw, auth, err := loadReconcileInput(ctx, st)
		if err != nil {
			return err
		}

		var rec reconcile.RunRecorder
		if st != nil {
			rec = st
		}
		env, err := initReconcile(cfg.Reconcile, rec)
		if err != nil {
			return err
		}

		source := "store"
		if reconcileRaw != "" {
			source = reconcileRaw
		}
		res, err := env.Pipeline.Run(ctx, reconcile.Input{Source: source, Raw: raw, Authoritative: auth})
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		out := reconcileOut
		if out == "" {
			out = cfg.Report.Dir
		}
		if err := writeReconcileOutputs(out, raw, res); err != nil {
			return err
		}

		if reconcileReview || cfg.Review.Enabled {
			if err := runReview(ctx, out, res, auth); err != nil {
				return err
			}
		}

		if reconcileSave {
			canonical := res.Merged
			if res.Alignment != nil {
				canonical = res.Alignment.Aligned
			}
			if err := st.ReplaceCanonical(ctx, store.UniqueSlugs(canonical)); err != nil {
				return eris.Wrap(err, "reconcile: save canonical")
			}
			zap.L().Info("canonical organizations saved", zap.Int("count", len(canonical)))
		}

		if res.After != nil {
			report.PrintSummary(os.Stdout, res.After, cfg.Report.TopN)
		}
		zap.L().Info("reconcile finished", zap.String("run_id", res.RunID), zap.String("out", out))
		return nil
	},
}

// loadReconcileInput reads raw records and the authoritative list from
// the flag files, falling back to the store for whichever is unset.
func loadReconcileInput(ctx context.Context, st store.Store) ([]model.Organization, []model.AuthoritativeOrg, error) {
	var (
		raw []model.Organization
		err error
	)
	if reconcileRaw != "" {
		raw, err = readOrganizations(ctx, reconcileRaw)
	} else {
		raw, err = st.ListOrganizations(ctx, store.OrgFilter{})
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "reconcile: load raw records")
	}
	if len(raw) == 0 {
		return nil, nil, eris.New("reconcile: no raw records (run import or pass --raw)")
	}

	var auth []model.AuthoritativeOrg
	if reconcileAuthoritative != "" {
		auth, err = archive.LoadAuthoritative(reconcileAuthoritative)
	} else {
		auth, err = st.ListAuthoritative(ctx)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "reconcile: load authoritative list")
	}
	return raw, auth, nil
}

func writeReconcileOutputs(dir string, raw []model.Organization, res *reconcile.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "reconcile: create output dir")
	}
	outputs := map[string]any{mergedFile: res.Merged}
	if res.Alignment != nil {
		outputs[alignedFile] = res.Alignment.Aligned
		outputs[alignmentFile] = res.Alignment
	}
	if res.Before != nil {
		outputs[beforeFile] = res.Before
	}
	if res.After != nil {
		outputs[investigationFile] = compare.Investigate(res.After, raw)
	}
	for name, v := range outputs {
		if err := report.WriteJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}

	if res.After == nil {
		return nil
	}
	paths, err := report.WriteAll(dir, res.After)
	if err != nil {
		return err
	}
	zap.L().Info("reports written", zap.Strings("files", paths))
	return nil
}

func runReview(ctx context.Context, dir string, res *reconcile.Result, auth []model.AuthoritativeOrg) error {
	if res.Alignment == nil || len(res.Alignment.Review) == 0 {
		zap.L().Info("review: nothing to review")
		return nil
	}
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("review: skipped, no anthropic key configured (GSOC_ANTHROPIC_KEY)")
		return nil
	}

	reviewer := review.New(anthropicpkg.NewClient(cfg.Anthropic.Key), review.Options{
		Model:         cfg.Anthropic.Model,
		MaxConcurrent: cfg.Review.MaxConcurrent,
	})
	decisions, err := reviewer.Review(ctx, review.Items(res.Alignment, res.Merged, auth))
	if err != nil {
		return err
	}

	counts := review.Counts(decisions)
	zap.L().Info("review complete",
		zap.Int("same", counts[review.VerdictSame]),
		zap.Int("different", counts[review.VerdictDifferent]),
		zap.Int("unsure", counts[review.VerdictUnsure]),
	)
	return report.WriteJSON(filepath.Join(dir, reviewFile), decisions)
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileRaw, "raw", "", "JSON file of raw organization records (default: store)")
	reconcileCmd.Flags().StringVar(&reconcileAuthoritative, "authoritative", "", "authoritative list JSON file (default: store)")
	reconcileCmd.Flags().StringVar(&reconcileOut, "out", "", "report directory (default from config)")
	reconcileCmd.Flags().BoolVar(&reconcileSave, "save", false, "replace the canonical organizations in the store")
	reconcileCmd.Flags().BoolVar(&reconcileReview, "review", false, "ask Claude about low-confidence matches")
	rootCmd.AddCommand(reconcileCmd)
}
