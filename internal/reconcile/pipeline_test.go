package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/align"
	"github.com/ketankauntia/gsoc-orgs/internal/config"
	"github.com/ketankauntia/gsoc-orgs/internal/grouping"
	"github.com/ketankauntia/gsoc-orgs/internal/identity"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

type recordingRecorder struct {
	nopRecorder
	mu       sync.Mutex
	statuses []model.RunStatus
	final    model.RunStatus
	result   *model.RunResult
	phases   []string
}

func (r *recordingRecorder) UpdateRunStatus(_ context.Context, _ string, status model.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *recordingRecorder) UpdateRunResult(_ context.Context, _ string, status model.RunStatus, result *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.final = status
	r.result = result
	return nil
}

func (r *recordingRecorder) CompletePhase(_ context.Context, _ string, result *model.PhaseResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, result.Name)
	return nil
}

func newTestPipeline(rec RunRecorder, aliases align.AliasTable) *Pipeline {
	norm := identity.NewNormalizer(identity.DefaultDenylist())
	return New(
		grouping.NewGrouper(norm, grouping.Options{Workers: 2}),
		align.NewReconciler(aliases, align.Options{}),
		rec,
	)
}

func authYears(name string, years ...string) model.AuthoritativeOrg {
	a := model.AuthoritativeOrg{Name: name, Years: map[string]model.AuthoritativeYear{}}
	for _, y := range years {
		a.Years[y] = model.AuthoritativeYear{}
	}
	return a
}

func TestRun_KodiEndToEnd(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{}
	p := newTestPipeline(rec, nil)

	res, err := p.Run(context.Background(), Input{
		Source: "test",
		Raw: []model.Organization{
			{Name: "Kodi", Website: "kodi.tv", YearsAppeared: []int{2016}},
			{Name: "XBMC Foundation", Website: "kodi.tv", YearsAppeared: []int{2015}},
			{Name: "Kodi", Website: "https://www.kodi.tv/", YearsAppeared: []int{2018}},
		},
		Authoritative: []model.AuthoritativeOrg{authYears("Kodi", "2015", "2016", "2018")},
	})
	require.NoError(t, err)

	require.Len(t, res.Merged, 1)
	assert.Equal(t, "Kodi", res.Merged[0].Name)
	assert.Equal(t, []int{2015, 2016, 2018}, res.Merged[0].YearsAppeared)

	require.NotNil(t, res.Alignment)
	assert.Equal(t, 1, res.Alignment.Matched)
	require.NotNil(t, res.After)
	require.Len(t, res.After.PerfectMatches, 1)
	assert.Equal(t, "Kodi", res.After.PerfectMatches[0].Name)

	assert.Equal(t, model.RunStats{
		RawRecords:     3,
		Groups:         1,
		MergedGroups:   1,
		MergedRecords:  1,
		YearsBefore:    3,
		YearsAfter:     3,
		Matched:        1,
		PerfectMatches: 1,
		MatchPercent:   100,
	}, res.Stats)

	assert.Equal(t, []model.RunStatus{
		model.RunStatusGrouping,
		model.RunStatusMerging,
		model.RunStatusAligning,
		model.RunStatusComparing,
	}, rec.statuses)
	assert.Equal(t, model.RunStatusComplete, rec.final)
	assert.Equal(t, []string{"1_group", "2_merge", "3_align", "4_compare"}, rec.phases)
	require.NotNil(t, rec.result)
	assert.Len(t, rec.result.Phases, 4)
}

func TestRun_KodiRenamedAcrossYears(t *testing.T) {
	t.Parallel()

	rules, err := config.LoadRules("")
	require.NoError(t, err)

	p := newTestPipeline(nil, align.AliasTable(rules.Aliases))
	res, err := p.Run(context.Background(), Input{
		Source: "test",
		Raw: []model.Organization{
			{Name: "XBMC Foundation", Website: "https://kodi.tv", YearsAppeared: []int{2014, 2015}},
			{Name: "Kodi Foundation", Website: "kodi.tv/", YearsAppeared: []int{2016, 2017, 2018, 2019, 2020}},
		},
		Authoritative: []model.AuthoritativeOrg{
			authYears("Kodi", "2014", "2015", "2016", "2017", "2018", "2019", "2020"),
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	require.Len(t, res.Merged, 1)
	assert.Equal(t, []int{2014, 2015, 2016, 2017, 2018, 2019, 2020}, res.Merged[0].YearsAppeared)

	require.NotNil(t, res.Alignment)
	require.Len(t, res.Alignment.Matches, 1)
	assert.Equal(t, align.MethodAlias, res.Alignment.Matches[0].Method)
	assert.Equal(t, "Kodi", res.Alignment.Matches[0].Authoritative)
	require.Len(t, res.Alignment.Aligned, 1)
	assert.Equal(t, "Kodi", res.Alignment.Aligned[0].Name)

	require.NotNil(t, res.After)
	require.Len(t, res.After.PerfectMatches, 1)
	assert.Equal(t, "Kodi", res.After.PerfectMatches[0].Name)
	assert.Empty(t, res.After.YearMismatches)
	assert.Empty(t, res.After.Missing)
}

func TestRun_AlignmentImprovesComparison(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(nil, align.AliasTable{"XBMC Foundation": "Kodi"})
	res, err := p.Run(context.Background(), Input{
		Raw: []model.Organization{
			{Name: "Kodi", Website: "https://kodi.tv", YearsAppeared: []int{2016}},
			{Name: "XBMC Foundation", Website: "https://xbmc.org", YearsAppeared: []int{2015}},
		},
		Authoritative: []model.AuthoritativeOrg{authYears("Kodi", "2015", "2016")},
	})
	require.NoError(t, err)

	assert.Len(t, res.Merged, 2)
	assert.Len(t, res.Before.YearMismatches, 1)
	assert.Len(t, res.Before.Extra, 1)
	assert.Len(t, res.After.PerfectMatches, 1)
	assert.Empty(t, res.After.Extra)
}

func TestRun_NoAuthoritativeSkipsAlignment(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(nil, nil)
	res, err := p.Run(context.Background(), Input{
		Raw: []model.Organization{{Name: "Debian", YearsAppeared: []int{2019}}},
	})
	require.NoError(t, err)

	assert.Nil(t, res.Alignment)
	assert.Nil(t, res.After)
	require.Len(t, res.Phases, 4)
	assert.Equal(t, model.PhaseStatusSkipped, res.Phases[2].Status)
	assert.Equal(t, model.PhaseStatusSkipped, res.Phases[3].Status)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_CancelledDuringGrouping(t *testing.T) {
	t.Parallel()

	rec := &recordingRecorder{}
	p := newTestPipeline(rec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Input{Raw: []model.Organization{{Name: "A"}, {Name: "B"}}})
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, rec.final)
	require.NotNil(t, rec.result)
	assert.NotEmpty(t, rec.result.Error)
}
