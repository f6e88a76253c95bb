package merge

import (
	"sort"
	"strings"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// reducer folds the members of a group into one field of dst.
type reducer func(dst *model.Organization, members []model.Organization)

// fieldRule binds a document field to its reducer.
type fieldRule struct {
	field  string
	reduce reducer
}

type stringField func(*model.Organization) *string

type listField func(*model.Organization) *[]string

// fieldRules lists how every field of a merged record is derived. Member
// order is the order of records in the group.
var fieldRules = []fieldRule{
	{"name", func(dst *model.Organization, ms []model.Organization) {
		names := make([]string, len(ms))
		for i := range ms {
			names[i] = ms[i].Name
		}
		dst.Name = CanonicalName(names)
	}},
	{"canonical_id", reduceCanonicalID},
	{"website", preferHTTPS(func(o *model.Organization) *string { return &o.Website })},
	{"years_appeared", reduceYears},
	{"appearances", reduceAppearances},
	{"categories", unionSorted(func(o *model.Organization) *[]string { return &o.Categories })},
	{"topics", unionSorted(func(o *model.Organization) *[]string { return &o.Topics })},
	{"tech_stack", unionFold(func(o *model.Organization) *[]string { return &o.TechStack })},
	{"socials.twitter", firstNonEmpty(func(o *model.Organization) *string { return &o.Socials.Twitter })},
	{"socials.github", firstNonEmpty(func(o *model.Organization) *string { return &o.Socials.GitHub })},
	{"socials.email", firstNonEmpty(func(o *model.Organization) *string { return &o.Socials.Email })},
	{"socials.blog", firstNonEmpty(func(o *model.Organization) *string { return &o.Socials.Blog })},
	{"socials.mailing_list", firstNonEmpty(func(o *model.Organization) *string { return &o.Socials.MailingList })},
	{"socials.other", reduceOtherLinks},
	{"description_html", longest(func(o *model.Organization) *string { return &o.DescriptionHTML })},
	{"short_desc", longest(func(o *model.Organization) *string { return &o.ShortDesc })},
	{"logoUrl", firstNonEmpty(func(o *model.Organization) *string { return &o.LogoURL })},
	{"logo_bg_color", firstNonEmpty(func(o *model.Organization) *string { return &o.LogoBgColor })},
	{"logo_local_filename", firstNonEmpty(func(o *model.Organization) *string { return &o.LogoLocalFilename })},
	{"logo_r2_url", firstNonEmpty(func(o *model.Organization) *string { return &o.LogoR2URL })},
	{"contributor_guide_url", lastNonEmpty(func(o *model.Organization) *string { return &o.ContributorGuideURL })},
	{"created_at", reduceCreatedAt},
	{"updated_at", reduceUpdatedAt},
}

func firstNonEmpty(get stringField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		for i := range ms {
			if v := *get(&ms[i]); v != "" {
				*get(dst) = v
				return
			}
		}
	}
}

func lastNonEmpty(get stringField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		for i := len(ms) - 1; i >= 0; i-- {
			if v := *get(&ms[i]); v != "" {
				*get(dst) = v
				return
			}
		}
	}
}

// longest keeps the longest value; the earliest wins ties.
func longest(get stringField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		best := ""
		for i := range ms {
			if v := *get(&ms[i]); len(v) > len(best) {
				best = v
			}
		}
		*get(dst) = best
	}
}

func preferHTTPS(get stringField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		first := ""
		for i := range ms {
			v := *get(&ms[i])
			if strings.HasPrefix(v, "https://") {
				*get(dst) = v
				return
			}
			if first == "" {
				first = v
			}
		}
		*get(dst) = first
	}
}

func unionSorted(get listField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		seen := make(map[string]struct{})
		var out []string
		for i := range ms {
			for _, v := range *get(&ms[i]) {
				if v == "" {
					continue
				}
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Strings(out)
		*get(dst) = out
	}
}

// unionFold deduplicates case-insensitively, keeping the first casing seen,
// and sorts by the kept value.
func unionFold(get listField) reducer {
	return func(dst *model.Organization, ms []model.Organization) {
		seen := make(map[string]struct{})
		var out []string
		for i := range ms {
			for _, v := range *get(&ms[i]) {
				key := strings.ToLower(strings.TrimSpace(v))
				if key == "" {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Strings(out)
		*get(dst) = out
	}
}

func reduceYears(dst *model.Organization, ms []model.Organization) {
	var all []int
	for i := range ms {
		all = append(all, ms[i].YearsAppeared...)
	}
	dst.YearsAppeared = model.NormalizeYears(all)
	dst.YearsCount = len(dst.YearsAppeared)
}

// reduceAppearances keeps the first appearance seen per year.
func reduceAppearances(dst *model.Organization, ms []model.Organization) {
	byYear := make(map[int]model.Appearance)
	for i := range ms {
		for _, a := range ms[i].Appearances {
			if _, ok := byYear[a.Year]; !ok {
				byYear[a.Year] = a
			}
		}
	}
	if len(byYear) == 0 {
		return
	}
	out := make([]model.Appearance, 0, len(byYear))
	for _, a := range byYear {
		out = append(out, cloneAppearance(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	dst.Appearances = out
}

func reduceOtherLinks(dst *model.Organization, ms []model.Organization) {
	seen := make(map[model.SocialLink]struct{})
	var out []model.SocialLink
	for i := range ms {
		for _, l := range ms[i].Socials.Other {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	dst.Socials.Other = out
}

// reduceCanonicalID keeps the greatest canonical id and the slug of the
// member carrying it.
func reduceCanonicalID(dst *model.Organization, ms []model.Organization) {
	owner := -1
	for i := range ms {
		if ms[i].CanonicalID == "" {
			continue
		}
		if owner < 0 || ms[i].CanonicalID > ms[owner].CanonicalID {
			owner = i
		}
	}
	if owner >= 0 {
		dst.CanonicalID = ms[owner].CanonicalID
		dst.Slug = ms[owner].Slug
	}
	if dst.Slug == "" && len(ms) > 0 {
		dst.Slug = ms[0].Slug
	}
}

func reduceCreatedAt(dst *model.Organization, ms []model.Organization) {
	for i := range ms {
		ts := ms[i].CreatedAt
		if ts != nil && (dst.CreatedAt == nil || ts.Before(dst.CreatedAt.Time)) {
			dst.CreatedAt = &model.Timestamp{Time: ts.Time}
		}
	}
}

func reduceUpdatedAt(dst *model.Organization, ms []model.Organization) {
	for i := range ms {
		ts := ms[i].UpdatedAt
		if ts != nil && (dst.UpdatedAt == nil || ts.After(dst.UpdatedAt.Time)) {
			dst.UpdatedAt = &model.Timestamp{Time: ts.Time}
		}
	}
}
