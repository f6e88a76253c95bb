// Package compare verifies a candidate record set against the
// authoritative organization list.
package compare

import (
	"sort"
	"strings"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

// CloseYearDelta is the largest year difference still counted as close.
const CloseYearDelta = 2

// YearMismatch is an authoritative entry present in the candidate set with
// different years.
type YearMismatch struct {
	Name          string `json:"name"`
	Authoritative []int  `json:"authoritative_years"`
	Candidate     []int  `json:"candidate_years"`
	MissingYears  []int  `json:"missing_years"`
	ExtraYears    []int  `json:"extra_years"`
	MatchPercent  int    `json:"match_percentage"`
}

// Severity is the number of differing years.
func (m YearMismatch) Severity() int {
	return len(m.MissingYears) + len(m.ExtraYears)
}

// Close reports whether the mismatch differs by at most CloseYearDelta years.
func (m YearMismatch) Close() bool {
	return m.Severity() <= CloseYearDelta
}

// Entry is an organization reported without a counterpart.
type Entry struct {
	Name  string `json:"name"`
	Years []int  `json:"years"`
}

// Summary holds the headline numbers of a report.
type Summary struct {
	AuthoritativeTotal int `json:"api_total"`
	CandidateTotal     int `json:"our_total"`
	PerfectMatches     int `json:"perfect_matches"`
	YearMismatches     int `json:"year_mismatches"`
	CloseMismatches    int `json:"close_mismatches"`
	Missing            int `json:"only_in_api"`
	Extra              int `json:"only_in_ours"`
	MatchPercent       int `json:"match_percentage"`
	CoveragePercent    int `json:"coverage_percentage"`
}

// Report classifies every authoritative entry exactly once as a perfect
// match, a year mismatch or missing, and lists candidates with no
// authoritative counterpart.
type Report struct {
	Summary        Summary        `json:"summary"`
	PerfectMatches []Entry        `json:"perfect_matches"`
	YearMismatches []YearMismatch `json:"year_mismatches"`
	Missing        []Entry        `json:"only_in_api"`
	Extra          []Entry        `json:"only_in_ours"`
}

// Compare matches candidates to authoritative entries by exact name.
// Duplicate candidate names use the first record.
func Compare(authoritative []model.AuthoritativeOrg, candidates []model.Organization) *Report {
	byName := make(map[string]model.Organization, len(candidates))
	for _, c := range candidates {
		if _, ok := byName[c.Name]; !ok {
			byName[c.Name] = c
		}
	}

	r := &Report{
		PerfectMatches: []Entry{},
		YearMismatches: []YearMismatch{},
		Missing:        []Entry{},
		Extra:          []Entry{},
	}
	authNames := make(map[string]struct{}, len(authoritative))
	for _, a := range authoritative {
		authNames[a.Name] = struct{}{}
		want := a.YearSet()

		c, ok := byName[a.Name]
		if !ok {
			r.Missing = append(r.Missing, Entry{Name: a.Name, Years: want})
			continue
		}
		got := model.NormalizeYears(c.YearsAppeared)
		missing, extra, shared := diffYears(want, got)
		if len(missing) == 0 && len(extra) == 0 {
			r.PerfectMatches = append(r.PerfectMatches, Entry{Name: a.Name, Years: want})
			continue
		}
		union := len(missing) + len(extra) + shared
		r.YearMismatches = append(r.YearMismatches, YearMismatch{
			Name:          a.Name,
			Authoritative: want,
			Candidate:     got,
			MissingYears:  missing,
			ExtraYears:    extra,
			MatchPercent:  shared * 100 / union,
		})
	}

	seen := make(map[string]struct{})
	for _, c := range candidates {
		if _, ok := authNames[c.Name]; ok {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		r.Extra = append(r.Extra, Entry{Name: c.Name, Years: model.NormalizeYears(c.YearsAppeared)})
	}

	SortBySeverity(r.YearMismatches)
	sortEntries(r.PerfectMatches)
	sortEntries(r.Missing)
	sortEntries(r.Extra)

	r.Summary = Summary{
		AuthoritativeTotal: len(authoritative),
		CandidateTotal:     len(candidates),
		PerfectMatches:     len(r.PerfectMatches),
		YearMismatches:     len(r.YearMismatches),
		Missing:            len(r.Missing),
		Extra:              len(r.Extra),
	}
	for _, m := range r.YearMismatches {
		if m.Close() {
			r.Summary.CloseMismatches++
		}
	}
	if n := len(authoritative); n > 0 {
		r.Summary.MatchPercent = len(r.PerfectMatches) * 100 / n
		r.Summary.CoveragePercent = (n - len(r.Missing)) * 100 / n
	}
	return r
}

// SortBySeverity orders mismatches by differing year count, most first,
// then by name.
func SortBySeverity(ms []YearMismatch) {
	sort.SliceStable(ms, func(i, j int) bool {
		if si, sj := ms[i].Severity(), ms[j].Severity(); si != sj {
			return si > sj
		}
		return strings.ToLower(ms[i].Name) < strings.ToLower(ms[j].Name)
	})
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		return strings.ToLower(es[i].Name) < strings.ToLower(es[j].Name)
	})
}

// diffYears returns want-got, got-want and |want ∩ got| for sorted sets.
func diffYears(want, got []int) (missing, extra []int, shared int) {
	missing, extra = []int{}, []int{}
	gotSet := model.YearSetOf(got)
	wantSet := model.YearSetOf(want)
	for _, y := range want {
		if _, ok := gotSet[y]; ok {
			shared++
			continue
		}
		missing = append(missing, y)
	}
	for _, y := range got {
		if _, ok := wantSet[y]; !ok {
			extra = append(extra, y)
		}
	}
	return missing, extra, shared
}
