package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/fetcher"
)

func newTestClient(t *testing.T, mux *http.ServeMux, currentYear int) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    "test-agent",
		Timeout:      5 * time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		DefaultRate:  1000,
	})
	return NewHTTPClient(f, srv.URL, currentYear)
}

func TestListOrganizations_Archive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/archive/programs/2016/organizations/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"kodi","name":"Kodi"},{"slug":"gnome","name":"GNOME"}]`))
	})
	c := newTestClient(t, mux, 2025)

	orgs, current, err := c.ListOrganizations(context.Background(), 2016)
	require.NoError(t, err)
	assert.False(t, current)
	require.Len(t, orgs, 2)
	assert.Equal(t, "kodi", orgs[0].Slug)
}

func TestListOrganizations_CurrentFallsBackToArchive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/program/2025/organizations/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/archive/programs/2025/organizations/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"kodi","name":"Kodi"}]`))
	})
	c := newTestClient(t, mux, 2025)

	orgs, current, err := c.ListOrganizations(context.Background(), 2025)
	require.NoError(t, err)
	assert.False(t, current)
	assert.Len(t, orgs, 1)
}

func TestListOrganizations_NeitherEndpoint(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), 2025)
	_, _, err := c.ListOrganizations(context.Background(), 2030)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no organization list for 2030")
}

func TestGetOrganizationAndProjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/organization/kodi/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025", r.URL.Query().Get("program"))
		w.Write([]byte(`{"slug":"kodi","name":"Kodi","website_url":"https://kodi.tv"}`))
	})
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "kodi", r.URL.Query().Get("organization_slug"))
		assert.Equal(t, "2025", r.URL.Query().Get("program_slug"))
		w.Write([]byte(`{"entities":{"projects":[{"id":42,"title":"Skin"},{"uid":"abc","title":"PVR"}]}}`))
	})
	c := newTestClient(t, mux, 2025)

	org, err := c.GetOrganization(context.Background(), 2025, "kodi", true)
	require.NoError(t, err)
	assert.Equal(t, "https://kodi.tv", org.WebsiteURL)

	projects, err := c.ListProjects(context.Background(), 2025, "kodi")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, FlexID("42"), projects[0].ID)
	assert.Equal(t, FlexID("abc"), projects[1].UID)
}

func TestDetailURL(t *testing.T) {
	c := NewHTTPClient(nil, "https://example.org/", 2025)
	assert.Equal(t, "https://example.org/api/organization/kodi/?program=2025", c.DetailURL(2025, "kodi", true))
	assert.Equal(t, "https://example.org/api/archive/programs/2016/organizations/kodi/", c.DetailURL(2016, "kodi", false))
}

func TestFlexID(t *testing.T) {
	var p struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x1","b":1234567890123,"c":null}`), &p))
	assert.Equal(t, FlexID("x1"), p.A)
	assert.Equal(t, FlexID("1234567890123"), p.B)
	assert.Equal(t, FlexID(""), p.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":[1]}`), &p))
}
