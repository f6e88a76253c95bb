// Package reconcile runs the grouping, merge, alignment and comparison
// stages over one batch of records.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/align"
	"github.com/ketankauntia/gsoc-orgs/internal/compare"
	"github.com/ketankauntia/gsoc-orgs/internal/grouping"
	"github.com/ketankauntia/gsoc-orgs/internal/merge"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// RunRecorder persists run provenance. The store implements it.
type RunRecorder interface {
	CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
}

// Input is one batch to reconcile.
type Input struct {
	Source        string
	Raw           []model.Organization
	Authoritative []model.AuthoritativeOrg
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	Groups    []grouping.Group
	Merged    []model.Organization
	Alignment *align.Result
	// Before compares the merged records, After the aligned records.
	Before *compare.Report
	After  *compare.Report
	Stats  model.RunStats
	Phases []model.PhaseResult
}

// Pipeline wires the reconcile stages together.
type Pipeline struct {
	grouper    *grouping.Grouper
	reconciler *align.Reconciler
	recorder   RunRecorder
}

// New creates a Pipeline. A nil recorder keeps runs in memory only.
func New(grouper *grouping.Grouper, reconciler *align.Reconciler, recorder RunRecorder) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{grouper: grouper, reconciler: reconciler, recorder: recorder}
}

// Run executes group, merge, align and compare. Alignment and comparison
// are skipped when no authoritative list is given.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := zap.L().With(zap.String("source", in.Source), zap.Int("raw_records", len(in.Raw)))
	log.Info("reconcile: starting run")

	run, err := p.recorder.CreateRun(ctx, model.RunInput{
		Source:             in.Source,
		RawRecords:         len(in.Raw),
		AuthoritativeCount: len(in.Authoritative),
	})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: create run")
	}

	result := &Result{RunID: run.ID}
	result.Stats.RawRecords = len(in.Raw)

	setStatus := func(status model.RunStatus) {
		if statusErr := p.recorder.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("reconcile: failed to update status", zap.Error(statusErr))
		}
	}

	trackPhase := func(name string, fn func() (map[string]any, error)) error {
		phase, phaseErr := p.recorder.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("reconcile: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		meta, fnErr := fn()
		pr := model.PhaseResult{
			Name:     name,
			Duration: time.Since(start).Milliseconds(),
			Metadata: meta,
			Status:   model.PhaseStatusComplete,
		}
		if fnErr != nil {
			pr.Status = model.PhaseStatusFailed
			pr.Error = fnErr.Error()
			log.Error("reconcile: phase failed", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration), zap.Error(fnErr))
		} else {
			log.Info("reconcile: phase complete", zap.String("phase", name), zap.Int64("duration_ms", pr.Duration))
		}

		if phase != nil {
			_ = p.recorder.CompletePhase(ctx, phase.ID, &pr)
		}
		result.Phases = append(result.Phases, pr)
		return fnErr
	}

	fail := func(err error) (*Result, error) {
		rr := &model.RunResult{Stats: result.Stats, Phases: result.Phases, Error: err.Error()}
		if updErr := p.recorder.UpdateRunResult(ctx, run.ID, model.RunStatusFailed, rr); updErr != nil {
			log.Warn("reconcile: failed to record failure", zap.Error(updErr))
		}
		return result, err
	}

	setStatus(model.RunStatusGrouping)
	err = trackPhase("1_group", func() (map[string]any, error) {
		groups, gErr := p.grouper.Group(ctx, in.Raw)
		if gErr != nil {
			return nil, gErr
		}
		result.Groups = groups
		for _, g := range groups {
			if len(g.Members) > 1 {
				result.Stats.MergedGroups++
			}
			if g.Fuzzy {
				result.Stats.FuzzyGroups++
			}
		}
		result.Stats.Groups = len(groups)
		return map[string]any{"groups": len(groups), "merged_groups": result.Stats.MergedGroups}, nil
	})
	if err != nil {
		return fail(eris.Wrap(err, "reconcile: group"))
	}

	setStatus(model.RunStatusMerging)
	err = trackPhase("2_merge", func() (map[string]any, error) {
		merged, mErr := mergeGroups(in.Raw, result.Groups)
		if mErr != nil {
			return nil, mErr
		}
		result.Merged = merged
		result.Stats.MergedRecords = len(merged)
		result.Stats.YearsBefore = countYears(in.Raw)
		result.Stats.YearsAfter = countYears(merged)
		return map[string]any{"merged_records": len(merged)}, nil
	})
	if err != nil {
		return fail(eris.Wrap(err, "reconcile: merge"))
	}

	if len(in.Authoritative) == 0 {
		log.Warn("reconcile: no authoritative list, skipping alignment")
		result.Phases = append(result.Phases,
			model.PhaseResult{Name: "3_align", Status: model.PhaseStatusSkipped},
			model.PhaseResult{Name: "4_compare", Status: model.PhaseStatusSkipped},
		)
	} else {
		setStatus(model.RunStatusAligning)
		_ = trackPhase("3_align", func() (map[string]any, error) {
			res := p.reconciler.Align(result.Merged, in.Authoritative)
			result.Alignment = res
			result.Stats.Matched = res.Matched
			result.Stats.Extra = res.Extra
			result.Stats.Missing = res.Missing
			result.Stats.ReviewQueue = len(res.Review)
			return map[string]any{"matched": res.Matched, "extra": res.Extra, "missing": res.Missing, "review": len(res.Review)}, nil
		})

		setStatus(model.RunStatusComparing)
		_ = trackPhase("4_compare", func() (map[string]any, error) {
			result.Before = compare.Compare(in.Authoritative, result.Merged)
			result.After = compare.Compare(in.Authoritative, result.Alignment.Aligned)
			result.Stats.PerfectMatches = result.After.Summary.PerfectMatches
			result.Stats.YearMismatches = result.After.Summary.YearMismatches
			result.Stats.MatchPercent = result.After.Summary.MatchPercent
			return map[string]any{
				"perfect_before": result.Before.Summary.PerfectMatches,
				"perfect_after":  result.After.Summary.PerfectMatches,
			}, nil
		})
	}

	rr := &model.RunResult{Stats: result.Stats, Phases: result.Phases}
	if err := p.recorder.UpdateRunResult(ctx, run.ID, model.RunStatusComplete, rr); err != nil {
		log.Warn("reconcile: failed to record result", zap.Error(err))
	}

	log.Info("reconcile: run complete",
		zap.String("run_id", run.ID),
		zap.Int("groups", result.Stats.Groups),
		zap.Int("merged_records", result.Stats.MergedRecords),
		zap.Int("matched", result.Stats.Matched),
		zap.Int("missing", result.Stats.Missing),
	)
	return result, nil
}

// mergeGroups merges each group and verifies that no participation year
// was dropped.
func mergeGroups(raw []model.Organization, groups []grouping.Group) ([]model.Organization, error) {
	merged := make([]model.Organization, 0, len(groups))
	for _, g := range groups {
		members := make([]model.Organization, len(g.Members))
		for i, m := range g.Members {
			members[i] = raw[m]
		}
		out := merge.Merge(members)

		have := model.YearSetOf(out.YearsAppeared)
		for _, m := range members {
			for _, y := range m.YearsAppeared {
				if _, ok := have[y]; !ok {
					return nil, eris.Errorf("merge dropped year %d of %q", y, m.Name)
				}
			}
		}
		merged = append(merged, out)
	}
	return merged, nil
}

func countYears(orgs []model.Organization) int {
	n := 0
	for _, o := range orgs {
		n += len(model.NormalizeYears(o.YearsAppeared))
	}
	return n
}

type nopRecorder struct{}

func (nopRecorder) CreateRun(_ context.Context, input model.RunInput) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{ID: uuid.New().String(), Input: input, Status: model.RunStatusQueued, CreatedAt: now, UpdatedAt: now}, nil
}

func (nopRecorder) UpdateRunStatus(context.Context, string, model.RunStatus) error { return nil }

func (nopRecorder) UpdateRunResult(context.Context, string, model.RunStatus, *model.RunResult) error {
	return nil
}

func (nopRecorder) CreatePhase(_ context.Context, runID string, name string) (*model.RunPhase, error) {
	return &model.RunPhase{ID: uuid.New().String(), RunID: runID, Name: name, Status: model.PhaseStatusRunning, StartedAt: time.Now().UTC()}, nil
}

func (nopRecorder) CompletePhase(context.Context, string, *model.PhaseResult) error { return nil }
