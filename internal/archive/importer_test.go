package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

type fakeClient struct {
	lists       map[int][]APIOrg
	current     map[int]bool
	details     map[string]APIOrg
	projects    map[string][]APIProject
	projectsErr error
}

func (c *fakeClient) ListOrganizations(_ context.Context, year int) ([]APIOrg, bool, error) {
	orgs, ok := c.lists[year]
	if !ok {
		return nil, false, fmt.Errorf("no list for %d", year)
	}
	return orgs, c.current[year], nil
}

func (c *fakeClient) GetOrganization(_ context.Context, year int, slug string, _ bool) (*APIOrg, error) {
	d, ok := c.details[fmt.Sprintf("%d/%s", year, slug)]
	if !ok {
		return nil, errors.New("detail unavailable")
	}
	return &d, nil
}

func (c *fakeClient) ListProjects(_ context.Context, year int, slug string) ([]APIProject, error) {
	if c.projectsErr != nil {
		return nil, c.projectsErr
	}
	return c.projects[fmt.Sprintf("%d/%s", year, slug)], nil
}

func (c *fakeClient) DetailURL(year int, slug string, _ bool) string {
	return fmt.Sprintf("https://example.org/%d/%s", year, slug)
}

type memSink struct {
	mu       sync.Mutex
	orgs     []model.Organization
	projects []model.Project
}

func (s *memSink) UpsertOrganizations(_ context.Context, orgs []model.Organization) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs = append(s.orgs, orgs...)
	return int64(len(orgs)), nil
}

func (s *memSink) UpsertProjects(_ context.Context, projects []model.Project) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, projects...)
	return int64(len(projects)), nil
}

func fixedNow() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestImportYear_Archive(t *testing.T) {
	client := &fakeClient{
		lists: map[int][]APIOrg{2016: {{Slug: "kodi", Name: "Kodi"}, {Slug: "gnome", Name: "GNOME"}}},
		details: map[string]APIOrg{
			"2016/kodi": {
				Slug: "kodi", Name: "Kodi", WebsiteURL: "https://kodi.tv",
				Projects: []APIProject{{ID: "p1", Title: "Skin"}, {ID: "p2", Title: "PVR"}},
			},
		},
	}
	sink := &memSink{}
	im := NewImporter(client, sink, ImporterOptions{Concurrency: 2, Now: fixedNow})

	res, err := im.ImportYear(context.Background(), 2016)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Organizations)
	assert.Equal(t, 2, res.Projects)
	assert.Equal(t, 1, res.DetailMisses)
	assert.False(t, res.Current)

	require.Len(t, sink.orgs, 2)
	byID := map[string]model.Organization{}
	for _, o := range sink.orgs {
		byID[o.CanonicalID] = o
	}
	assert.Equal(t, "https://kodi.tv", byID["2016-kodi"].Website)
	assert.Equal(t, 2, byID["2016-kodi"].Appearances[0].ChosenCount)
	assert.Equal(t, "https://example.org/2016/kodi", byID["2016-kodi"].Appearances[0].SourceURL)
	// gnome had no detail and falls back to its list entry
	assert.Equal(t, "GNOME", byID["2016-gnome"].Name)
	assert.Equal(t, 0, byID["2016-gnome"].Appearances[0].ChosenCount)
}

func TestImportYear_CurrentFetchesProjects(t *testing.T) {
	client := &fakeClient{
		lists:   map[int][]APIOrg{2025: {{Slug: "kodi", Name: "Kodi"}}},
		current: map[int]bool{2025: true},
		details: map[string]APIOrg{"2025/kodi": {Slug: "kodi", Name: "Kodi"}},
		projects: map[string][]APIProject{
			"2025/kodi": {{ID: "7", Title: "Skin"}},
		},
	}
	sink := &memSink{}
	im := NewImporter(client, sink, ImporterOptions{Now: fixedNow})

	res, err := im.ImportYear(context.Background(), 2025)
	require.NoError(t, err)
	assert.True(t, res.Current)
	require.Len(t, sink.projects, 1)
	assert.Equal(t, "2025-kodi", sink.projects[0].OrgCanonicalID)
}

func TestImportYear_ProjectFailureYieldsNone(t *testing.T) {
	client := &fakeClient{
		lists:       map[int][]APIOrg{2025: {{Slug: "kodi", Name: "Kodi"}}},
		current:     map[int]bool{2025: true},
		details:     map[string]APIOrg{"2025/kodi": {Slug: "kodi", Name: "Kodi"}},
		projectsErr: errors.New("boom"),
	}
	sink := &memSink{}
	im := NewImporter(client, sink, ImporterOptions{Now: fixedNow})

	res, err := im.ImportYear(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Organizations)
	assert.Equal(t, 0, res.Projects)
}

func TestImportYears_RecordsFailures(t *testing.T) {
	client := &fakeClient{
		lists: map[int][]APIOrg{2016: {{Slug: "kodi", Name: "Kodi"}}},
	}
	sink := &memSink{}
	im := NewImporter(client, sink, ImporterOptions{Now: fixedNow})

	results, err := im.ImportYears(context.Background(), []int{2016, 2009})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Contains(t, results[1].Error, "no list for 2009")
	assert.Equal(t, "2009: failed: no list for 2009", results[1].String())

	ids := []string{}
	for _, o := range sink.orgs {
		ids = append(ids, o.CanonicalID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"2016-kodi"}, ids)
}

func TestImportYears_Cancelled(t *testing.T) {
	client := &fakeClient{lists: map[int][]APIOrg{2016: {{Slug: "kodi"}}}}
	im := NewImporter(client, &memSink{}, ImporterOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := im.ImportYears(ctx, []int{2016})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
