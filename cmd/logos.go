package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/logo"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/store"
)

var logosCmd = &cobra.Command{
	Use:   "logos",
	Short: "Manage organization logos",
}

var (
	logosOrgs   []string
	logosForce  bool
	logosDryRun bool
)

var logosUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload canonical organization logos to R2",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var api logo.PutObjectAPI
		client, err := logo.NewR2Client(ctx, cfg.R2)
		switch {
		case err == nil:
			api = client
		case !logosDryRun:
			return err
		default:
			zap.L().Warn("r2 not configured, dry run only", zap.Error(err))
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orgs, err := selectOrganizations(ctx, st, logosOrgs)
		if err != nil {
			return err
		}

		opts := logo.OptionsFromConfig(cfg.R2)
		opts.Force = logosForce
		opts.DryRun = logosDryRun
		u := logo.NewUploader(api, newFetcher(cfg.Archive), st, opts)

		sum, err := u.Upload(ctx, orgs)
		if err != nil {
			return err
		}
		formatLogoSummary(os.Stdout, sum)
		if n := sum.Counts[logo.OutcomeFailed]; n > 0 {
			return eris.Errorf("logos upload: %d failed", n)
		}
		return nil
	},
}

// selectOrganizations returns the canonical organizations with the given
// slugs, or all of them when slugs is empty.
func selectOrganizations(ctx context.Context, st store.Store, slugs []string) ([]model.Organization, error) {
	if len(slugs) == 0 {
		orgs, err := st.ListCanonical(ctx, store.OrgFilter{})
		return orgs, eris.Wrap(err, "logos: list canonical")
	}
	orgs := make([]model.Organization, 0, len(slugs))
	for _, slug := range slugs {
		org, err := st.GetCanonical(ctx, slug)
		if err != nil {
			return nil, eris.Wrapf(err, "logos: organization %s", slug)
		}
		orgs = append(orgs, *org)
	}
	return orgs, nil
}

// formatLogoSummary writes outcome counts and every non-skipped result.
func formatLogoSummary(out io.Writer, sum *logo.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tOUTCOME\tURL\tERROR")
	for _, r := range sum.Results {
		if r.Outcome == logo.OutcomeSkipped {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Slug, r.Outcome, r.URL, r.Error)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nuploaded=%d skipped=%d missing=%d failed=%d dry_run=%d\n",
		sum.Counts[logo.OutcomeUploaded],
		sum.Counts[logo.OutcomeSkipped],
		sum.Counts[logo.OutcomeMissing],
		sum.Counts[logo.OutcomeFailed],
		sum.Counts[logo.OutcomeDryRun],
	)
}

func init() {
	logosUploadCmd.Flags().StringSliceVar(&logosOrgs, "orgs", nil, "only these organization slugs")
	logosUploadCmd.Flags().BoolVar(&logosForce, "force", false, "re-upload logos that already have an R2 URL")
	logosUploadCmd.Flags().BoolVar(&logosDryRun, "dry-run", false, "report what would be uploaded without uploading")
	logosCmd.AddCommand(logosUploadCmd)
	rootCmd.AddCommand(logosCmd)
}
