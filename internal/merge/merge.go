// Package merge folds a group of records describing one organization into
// a single record.
package merge

import (
	"strings"
	"unicode/utf8"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

var secondarySuffixes = []string{" foundation", " project"}

// Merge combines members into one record following fieldRules. A single
// member is returned unchanged, so merging a merged record is a no-op.
func Merge(members []model.Organization) model.Organization {
	switch len(members) {
	case 0:
		return model.Organization{}
	case 1:
		return Clone(members[0])
	}

	var out model.Organization
	for _, r := range fieldRules {
		r.reduce(&out, members)
	}
	return out
}

// MergeAs merges members and names the result name.
func MergeAs(members []model.Organization, name string) model.Organization {
	out := Merge(members)
	out.Name = name
	return out
}

// Fields lists the field names covered by the merge rules, in order.
func Fields() []string {
	out := make([]string, len(fieldRules))
	for i, r := range fieldRules {
		out[i] = r.field
	}
	return out
}

// CanonicalName picks the display name of a group: names without a
// trailing "Foundation" or "Project" are preferred, then the longest, then
// the earliest. Empty names are ignored.
func CanonicalName(names []string) string {
	best := ""
	bestSecondary := true
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		secondary := hasSecondarySuffix(n)
		switch {
		case best == "":
		case bestSecondary && !secondary:
		case secondary == bestSecondary && utf8.RuneCountInString(n) > utf8.RuneCountInString(best):
		default:
			continue
		}
		best, bestSecondary = n, secondary
	}
	return best
}

func hasSecondarySuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range secondarySuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of org.
func Clone(org model.Organization) model.Organization {
	out := org
	out.TechStack = cloneStrings(org.TechStack)
	out.Topics = cloneStrings(org.Topics)
	out.Categories = cloneStrings(org.Categories)
	if org.YearsAppeared != nil {
		out.YearsAppeared = append([]int(nil), org.YearsAppeared...)
	}
	if org.Socials.Other != nil {
		out.Socials.Other = append([]model.SocialLink(nil), org.Socials.Other...)
	}
	if org.Appearances != nil {
		out.Appearances = make([]model.Appearance, len(org.Appearances))
		for i, a := range org.Appearances {
			out.Appearances[i] = cloneAppearance(a)
		}
	}
	if org.CreatedAt != nil {
		out.CreatedAt = &model.Timestamp{Time: org.CreatedAt.Time}
	}
	if org.UpdatedAt != nil {
		out.UpdatedAt = &model.Timestamp{Time: org.UpdatedAt.Time}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneAppearance(a model.Appearance) model.Appearance {
	if a.PitchedCount != nil {
		n := *a.PitchedCount
		a.PitchedCount = &n
	}
	return a
}
