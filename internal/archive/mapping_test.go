package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

func TestNormalizeContactLinks(t *testing.T) {
	s := NormalizeContactLinks([]ContactLink{
		{Name: "Twitter", URL: "https://twitter.com/kodi"},
		{Name: "Source", URL: "https://github.com/xbmc"},
		{Name: "Email", URL: "team@kodi.tv"},
		{Name: "News", URL: "https://kodi.tv/blog"},
		{Name: "Mailing List", URL: "https://lists.kodi.tv"},
		{Name: "Chat", URL: "https://matrix.to/#/kodi"},
		{Name: "Forum", URL: "https://forum.kodi.tv"},
	})
	assert.Equal(t, "https://twitter.com/kodi", s.Twitter)
	assert.Equal(t, "https://github.com/xbmc", s.GitHub)
	assert.Equal(t, "team@kodi.tv", s.Email)
	assert.Equal(t, "https://kodi.tv/blog", s.Blog)
	assert.Equal(t, "https://lists.kodi.tv", s.MailingList)
	assert.Equal(t, []model.SocialLink{
		{Name: "Chat", URL: "https://matrix.to/#/kodi"},
		{Name: "Forum", URL: "https://forum.kodi.tv"},
	}, s.Other)
}

func TestToOrganization(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	org := ToOrganization(APIOrg{
		Slug:         "kodi",
		Name:         "Kodi",
		Website:      "https://kodi.tv",
		IdeasLink:    "https://kodi.wiki/ideas",
		Description:  "<p>Media</p>",
		TechTags:     []string{"c++"},
		ContactLinks: []ContactLink{{Name: "github", URL: "https://github.com/xbmc"}},
	}, 2016, "https://example.org/detail", 3, now)

	assert.Equal(t, "2016-kodi", org.CanonicalID)
	assert.Equal(t, "https://kodi.tv", org.Website)
	assert.Equal(t, "https://kodi.wiki/ideas", org.ContributorGuideURL)
	assert.Equal(t, "<p>Media</p>", org.DescriptionHTML)
	assert.Equal(t, []string{"c++"}, org.TechStack)
	assert.Equal(t, []string{}, org.Topics)
	assert.Equal(t, "https://github.com/xbmc", org.Socials.GitHub)
	assert.Equal(t, []int{2016}, org.YearsAppeared)
	assert.Equal(t, 1, org.YearsCount)
	require.Len(t, org.Appearances, 1)
	assert.Equal(t, 3, org.Appearances[0].ChosenCount)
	assert.Equal(t, "https://example.org/detail", org.Appearances[0].SourceURL)
	assert.True(t, org.CreatedAt.Equal(now))
}

func TestToOrganization_ProgramSlugWins(t *testing.T) {
	org := ToOrganization(APIOrg{Slug: "kodi", ProgramSlug: "2024"}, 2025, "", 0, time.Now())
	assert.Equal(t, "2024-kodi", org.CanonicalID)
	assert.Equal(t, []int{2024}, org.YearsAppeared)
}

func TestToProjects(t *testing.T) {
	org := APIOrg{Slug: "kodi", Name: "Kodi"}
	projects := ToProjects(org, 2016, []APIProject{
		{ID: "1", Title: "Skin", BodyShort: "short", Body: "<p>long</p>", ContributorName: "ann", AssignedMentors: []string{"bob"}},
		{Title: "no id"},
		{UID: "u2", Title: "PVR", MentorNames: []string{"cy"}, OrganizationName: "Kodi Foundation"},
	})
	require.Len(t, projects, 2)

	assert.Equal(t, "1", projects[0].ProjectID)
	assert.Equal(t, "2016-kodi", projects[0].OrgCanonicalID)
	assert.Equal(t, "short", projects[0].AbstractShort)
	assert.Equal(t, "<p>long</p>", projects[0].InfoHTML)
	assert.Equal(t, "ann", projects[0].Contributor)
	assert.Equal(t, []string{"bob"}, projects[0].Mentors)
	assert.Equal(t, "Kodi", projects[0].OrgName)

	assert.Equal(t, "u2", projects[1].ProjectID)
	assert.Equal(t, "Kodi Foundation", projects[1].OrgName)
	assert.Equal(t, []string{"cy"}, projects[1].Mentors)
}
