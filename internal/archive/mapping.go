package archive

import (
	"strconv"
	"strings"
	"time"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// NormalizeContactLinks classifies profile links into socials. The first
// rule that matches a link wins; later links of the same kind overwrite
// earlier ones.
func NormalizeContactLinks(links []ContactLink) model.Socials {
	var s model.Socials
	for _, c := range links {
		u := c.URL
		name := strings.ToLower(c.Name)
		switch {
		case strings.Contains(u, "twitter") || strings.Contains(name, "twitter"):
			s.Twitter = u
		case strings.Contains(u, "github") || strings.Contains(name, "github"):
			s.GitHub = u
		case strings.Contains(u, "@") && !strings.HasPrefix(u, "http"):
			s.Email = u
		case strings.Contains(name, "blog") || strings.Contains(u, "blog"):
			s.Blog = u
		case strings.Contains(name, "mail") || strings.Contains(name, "list"):
			s.MailingList = u
		default:
			s.Other = append(s.Other, model.SocialLink{Name: c.Name, URL: u})
		}
	}
	return s
}

// programYear is the year a record belongs to: the numeric program slug
// when present, otherwise the requested year.
func programYear(org APIOrg, year int) int {
	if y, err := strconv.Atoi(org.ProgramSlug); err == nil && y > 0 {
		return y
	}
	return year
}

// ToOrganization maps an API organization to a raw per-year record.
func ToOrganization(org APIOrg, year int, sourceURL string, chosen int, now time.Time) model.Organization {
	year = programYear(org, year)
	ts := model.NewTimestamp(now)
	return model.Organization{
		CanonicalID:         model.CanonicalID(year, org.Slug),
		Slug:                org.Slug,
		Name:                org.Name,
		Website:             firstNonEmpty(org.WebsiteURL, org.Website),
		LogoURL:             org.LogoURL,
		LogoBgColor:         org.LogoBgColor,
		ContributorGuideURL: firstNonEmpty(org.IdeasListURL, org.ContributorGuidanceURL, org.IdeasLink),
		ShortDesc:           org.Tagline,
		DescriptionHTML:     firstNonEmpty(org.DescriptionHTML, org.Description),
		TechStack:           nonNil(org.TechTags),
		Topics:              nonNil(org.TopicTags),
		Categories:          nonNil(org.Categories),
		Socials:             NormalizeContactLinks(org.ContactLinks),
		YearsAppeared:       []int{year},
		YearsCount:          1,
		Appearances: []model.Appearance{{
			Year:        year,
			Appeared:    true,
			ChosenCount: chosen,
			SourceURL:   sourceURL,
		}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// ToProjects maps API projects to project records. Projects without any
// identifier are dropped.
func ToProjects(org APIOrg, year int, projects []APIProject) []model.Project {
	year = programYear(org, year)
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		id := firstNonEmpty(string(p.ID), string(p.ProjectID), string(p.UID))
		if id == "" {
			continue
		}
		mentors := p.MentorNames
		if len(mentors) == 0 {
			mentors = p.AssignedMentors
		}
		out = append(out, model.Project{
			ProjectID:      id,
			OrgCanonicalID: model.CanonicalID(year, org.Slug),
			OrgSlug:        org.Slug,
			OrgName:        firstNonEmpty(p.OrganizationName, org.Name),
			Year:           year,
			Title:          p.Title,
			AbstractShort:  firstNonEmpty(p.AbstractShort, p.BodyShort),
			InfoHTML:       firstNonEmpty(p.AbstractHTML, p.Body, p.AbstractShort),
			CodeURL:        p.ProjectCodeURL,
			Contributor:    firstNonEmpty(p.ContributorDisplayName, p.ContributorName),
			Mentors:        mentors,
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
