package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Organization is a single organization document. Raw per-year records
// scraped from the archive and merged canonical records share this shape.
type Organization struct {
	CanonicalID         string       `json:"canonical_id,omitempty"`
	Slug                string       `json:"slug,omitempty"`
	Name                string       `json:"name"`
	Website             string       `json:"website,omitempty"`
	LogoURL             string       `json:"logoUrl,omitempty"`
	LogoBgColor         string       `json:"logo_bg_color,omitempty"`
	LogoLocalFilename   string       `json:"logo_local_filename,omitempty"`
	LogoR2URL           string       `json:"logo_r2_url,omitempty"`
	ContributorGuideURL string       `json:"contributor_guide_url,omitempty"`
	ShortDesc           string       `json:"short_desc,omitempty"`
	DescriptionHTML     string       `json:"description_html,omitempty"`
	TechStack           []string     `json:"tech_stack,omitempty"`
	Topics              []string     `json:"topics,omitempty"`
	Categories          []string     `json:"categories,omitempty"`
	Socials             Socials      `json:"socials"`
	YearsAppeared       []int        `json:"years_appeared"`
	YearsCount          int          `json:"years_count"`
	Appearances         []Appearance `json:"appearances,omitempty"`
	CreatedAt           *Timestamp   `json:"created_at,omitempty"`
	UpdatedAt           *Timestamp   `json:"updated_at,omitempty"`
}

// Socials holds contact links classified by kind.
type Socials struct {
	Twitter     string       `json:"twitter,omitempty"`
	GitHub      string       `json:"github,omitempty"`
	Email       string       `json:"email,omitempty"`
	Blog        string       `json:"blog,omitempty"`
	MailingList string       `json:"mailing_list,omitempty"`
	Other       []SocialLink `json:"other,omitempty"`
}

// IsZero reports whether no social link is set.
func (s Socials) IsZero() bool {
	return s.Twitter == "" && s.GitHub == "" && s.Email == "" &&
		s.Blog == "" && s.MailingList == "" && len(s.Other) == 0
}

// SocialLink is an unclassified contact link. It decodes from either
// {"name": ..., "url": ...} or a bare string.
type SocialLink struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// UnmarshalJSON accepts an object or a plain string.
func (l *SocialLink) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = SocialLink{URL: s}
		return nil
	}
	type alias SocialLink
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = SocialLink(a)
	return nil
}

// Appearance records participation in one program year.
type Appearance struct {
	Year         int    `json:"year"`
	Appeared     bool   `json:"appeared"`
	PitchedCount *int   `json:"pitchedCount,omitempty"`
	ChosenCount  int    `json:"chosenCount"`
	SourceURL    string `json:"source_url,omitempty"`
}

// Timestamp is a time that decodes from RFC 3339 strings and from
// extended-JSON {"$date": ...} objects.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// MarshalJSON encodes as an RFC 3339 string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes a string, a {"$date": string|millis} object, or
// epoch milliseconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
		return nil
	case '{':
		var wrapped struct {
			Date json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		return t.UnmarshalJSON(wrapped.Date)
	default:
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return err
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
}

// AuthoritativeOrg is an entry of the authoritative organization list.
// It is read-only ground truth.
type AuthoritativeOrg struct {
	Name         string                       `json:"name"`
	Slug         string                       `json:"slug,omitempty"`
	URL          string                       `json:"url,omitempty"`
	Description  string                       `json:"description,omitempty"`
	Category     string                       `json:"category,omitempty"`
	Topics       []string                     `json:"topics,omitempty"`
	Technologies []string                     `json:"technologies,omitempty"`
	Years        map[string]AuthoritativeYear `json:"years"`
}

// AuthoritativeYear is the per-year detail of an authoritative entry.
type AuthoritativeYear struct {
	NumProjects int    `json:"num_projects,omitempty"`
	ProjectsURL string `json:"projects_url,omitempty"`
}

// YearSet returns the sorted participation years. Keys that are not
// integers are ignored.
func (a AuthoritativeOrg) YearSet() []int {
	years := make([]int, 0, len(a.Years))
	for k := range a.Years {
		y, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Project is a contributor project accepted under an organization.
type Project struct {
	ProjectID      string   `json:"project_id"`
	OrgCanonicalID string   `json:"org_canonical_id"`
	OrgSlug        string   `json:"org_slug"`
	OrgName        string   `json:"org_name"`
	Year           int      `json:"year"`
	Title          string   `json:"title"`
	AbstractShort  string   `json:"abstract_short,omitempty"`
	InfoHTML       string   `json:"info_html,omitempty"`
	CodeURL        string   `json:"code_url,omitempty"`
	Contributor    string   `json:"contributor,omitempty"`
	Mentors        []string `json:"mentors,omitempty"`
}

// CanonicalID is the id of a raw per-year record.
func CanonicalID(year int, slug string) string {
	return strconv.Itoa(year) + "-" + slug
}

// NormalizeYears returns years deduplicated and sorted ascending.
func NormalizeYears(years []int) []int {
	if len(years) == 0 {
		return []int{}
	}
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// YearSetOf returns years as a set.
func YearSetOf(years []int) map[int]struct{} {
	set := make(map[int]struct{}, len(years))
	for _, y := range years {
		set[y] = struct{}{}
	}
	return set
}
