package compare

import (
	"strings"

	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

const maxLeadRecords = 10

// LeadRecord is a raw record that may explain a gap.
type LeadRecord struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	GitHub  string `json:"github,omitempty"`
	Years   []int  `json:"years"`
}

// Lead collects raw records that look related to a missing entry or to a
// mismatch with missing years.
type Lead struct {
	Authoritative string       `json:"authoritative"`
	MissingYears  []int        `json:"missing_years"`
	Records       []LeadRecord `json:"records"`
}

// Investigate searches raw for records whose names contain, or are
// contained in, the name of each gap, ignoring case and spaces.
func Investigate(r *Report, raw []model.Organization) []Lead {
	var leads []Lead
	for _, m := range r.Missing {
		leads = append(leads, lead(m.Name, m.Years, raw))
	}
	for _, m := range r.YearMismatches {
		if len(m.MissingYears) == 0 {
			continue
		}
		leads = append(leads, lead(m.Name, m.MissingYears, raw))
	}
	return leads
}

func lead(name string, years []int, raw []model.Organization) Lead {
	l := Lead{Authoritative: name, MissingYears: years, Records: []LeadRecord{}}
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return l
	}
	for _, org := range raw {
		if len(l.Records) >= maxLeadRecords {
			break
		}
		if !relatedName(want, strings.ToLower(strings.TrimSpace(org.Name))) {
			continue
		}
		l.Records = append(l.Records, LeadRecord{
			Name:    org.Name,
			Website: org.Website,
			GitHub:  org.Socials.GitHub,
			Years:   model.NormalizeYears(org.YearsAppeared),
		})
	}
	return l
}

func relatedName(a, b string) bool {
	if b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return strings.ReplaceAll(a, " ", "") == strings.ReplaceAll(b, " ", "")
}
