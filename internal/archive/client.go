// Package archive scrapes organization and project records from the
// Google Summer of Code program API.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/fetcher"
)

// DefaultBaseURL is the program site.
const DefaultBaseURL = "https://" + fetcher.ArchiveHost

// APIOrg is an organization as returned by either the current-program or
// the archive endpoints. Field names vary between program years, so
// several alternatives are kept.
type APIOrg struct {
	Slug                   string        `json:"slug"`
	Name                   string        `json:"name"`
	ProgramSlug            string        `json:"program_slug"`
	LogoURL                string        `json:"logo_url"`
	LogoBgColor            string        `json:"logo_bg_color"`
	Tagline                string        `json:"tagline"`
	DescriptionHTML        string        `json:"description_html"`
	Description            string        `json:"description"`
	WebsiteURL             string        `json:"website_url"`
	Website                string        `json:"website"`
	IdeasListURL           string        `json:"ideas_list_url"`
	ContributorGuidanceURL string        `json:"contributor_guidance_url"`
	IdeasLink              string        `json:"ideas_link"`
	TechTags               []string      `json:"tech_tags"`
	TopicTags              []string      `json:"topic_tags"`
	Categories             []string      `json:"categories"`
	ContactLinks           []ContactLink `json:"contact_links"`
	Projects               []APIProject  `json:"projects"`
}

// ContactLink is a named link on an organization profile.
type ContactLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// APIProject is an accepted contributor project.
type APIProject struct {
	ID                     FlexID   `json:"id"`
	ProjectID              FlexID   `json:"project_id"`
	UID                    FlexID   `json:"uid"`
	OrganizationName       string   `json:"organization_name"`
	Title                  string   `json:"title"`
	AbstractHTML           string   `json:"abstract_html"`
	Body                   string   `json:"body"`
	AbstractShort          string   `json:"abstract_short"`
	BodyShort              string   `json:"body_short"`
	ProjectCodeURL         string   `json:"project_code_url"`
	ContributorDisplayName string   `json:"contributor_display_name"`
	ContributorName        string   `json:"contributor_name"`
	MentorNames            []string `json:"mentor_names"`
	AssignedMentors        []string `json:"assigned_mentors"`
}

// FlexID decodes an identifier that may be a JSON string or number.
type FlexID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

// Client reads the program API.
type Client interface {
	// ListOrganizations returns the organizations of a program year and
	// whether they came from the current-program endpoint.
	ListOrganizations(ctx context.Context, year int) ([]APIOrg, bool, error)
	// GetOrganization returns one organization's detail.
	GetOrganization(ctx context.Context, year int, slug string, current bool) (*APIOrg, error)
	// ListProjects returns a current-program organization's projects.
	ListProjects(ctx context.Context, year int, slug string) ([]APIProject, error)
	// DetailURL is the URL GetOrganization reads.
	DetailURL(year int, slug string, current bool) string
}

// HTTPClient implements Client over a fetcher.
type HTTPClient struct {
	fetcher     fetcher.Fetcher
	baseURL     string
	currentYear int
}

// NewHTTPClient creates a client. Years at or after currentYear try the
// current-program endpoint first.
func NewHTTPClient(f fetcher.Fetcher, baseURL string, currentYear int) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{fetcher: f, baseURL: strings.TrimRight(baseURL, "/"), currentYear: currentYear}
}

func (c *HTTPClient) currentListURL(year int) string {
	return fmt.Sprintf("%s/api/program/%d/organizations/", c.baseURL, year)
}

func (c *HTTPClient) archiveListURL(year int) string {
	return fmt.Sprintf("%s/api/archive/programs/%d/organizations/", c.baseURL, year)
}

// DetailURL implements Client.
func (c *HTTPClient) DetailURL(year int, slug string, current bool) string {
	if current {
		return fmt.Sprintf("%s/api/organization/%s/?program=%d", c.baseURL, url.PathEscape(slug), year)
	}
	return fmt.Sprintf("%s/api/archive/programs/%d/organizations/%s/", c.baseURL, year, url.PathEscape(slug))
}

func (c *HTTPClient) projectsURL(year int, slug string) string {
	q := url.Values{}
	q.Set("organization_slug", slug)
	q.Set("program_slug", strconv.Itoa(year))
	return c.baseURL + "/api/projects/?" + q.Encode()
}

// ListOrganizations implements Client. The preferred endpoint falls back
// to the other one on 404.
func (c *HTTPClient) ListOrganizations(ctx context.Context, year int) ([]APIOrg, bool, error) {
	current := year >= c.currentYear
	for _, cur := range []bool{current, !current} {
		u := c.archiveListURL(year)
		if cur {
			u = c.currentListURL(year)
		}
		zap.L().Info("fetching organization list", zap.Int("year", year), zap.String("url", u))

		body, err := c.fetcher.Download(ctx, u)
		if fetcher.IsNotFound(err) {
			zap.L().Info("organization list not found, trying other endpoint", zap.Int("year", year))
			continue
		}
		if err != nil {
			return nil, false, eris.Wrapf(err, "archive: list organizations %d", year)
		}
		orgs, err := fetcher.CollectJSONArray[APIOrg](ctx, body)
		body.Close() //nolint:errcheck
		if err != nil {
			return nil, false, eris.Wrapf(err, "archive: decode organizations %d", year)
		}
		return orgs, cur, nil
	}
	return nil, false, eris.Errorf("archive: no organization list for %d", year)
}

// GetOrganization implements Client.
func (c *HTTPClient) GetOrganization(ctx context.Context, year int, slug string, current bool) (*APIOrg, error) {
	org, err := fetcher.GetJSON[APIOrg](ctx, c.fetcher, c.DetailURL(year, slug, current))
	if err != nil {
		return nil, eris.Wrapf(err, "archive: organization %s/%d", slug, year)
	}
	return org, nil
}

type projectsResponse struct {
	Entities struct {
		Projects []APIProject `json:"projects"`
	} `json:"entities"`
}

// ListProjects implements Client.
func (c *HTTPClient) ListProjects(ctx context.Context, year int, slug string) ([]APIProject, error) {
	resp, err := fetcher.GetJSON[projectsResponse](ctx, c.fetcher, c.projectsURL(year, slug))
	if err != nil {
		return nil, eris.Wrapf(err, "archive: projects %s/%d", slug, year)
	}
	return resp.Entities.Projects, nil
}
