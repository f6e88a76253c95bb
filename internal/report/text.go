package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

// WriteText writes the human readable review report.
func WriteText(w io.Writer, r *compare.Report) error {
	b := bufio.NewWriter(w)
	s := r.Summary

	fmt.Fprintf(b, "%s\nGSoC Organizations - Comparison Report\n%s\n\n", heavyRule, heavyRule)
	fmt.Fprintf(b, "SUMMARY\n%s\n", lightRule)
	fmt.Fprintf(b, "API Organizations:           %d\n", s.AuthoritativeTotal)
	fmt.Fprintf(b, "Our Organizations:           %d\n", s.CandidateTotal)
	fmt.Fprintf(b, "Perfect Matches:             %d (%d%%)\n", s.PerfectMatches, percent(s.PerfectMatches, s.AuthoritativeTotal))
	fmt.Fprintf(b, "Year Mismatches:             %d (%d%%)\n", s.YearMismatches, percent(s.YearMismatches, s.AuthoritativeTotal))
	fmt.Fprintf(b, "  within %d years:            %d\n", compare.CloseYearDelta, s.CloseMismatches)
	fmt.Fprintf(b, "Missing from Our Data:       %d\n", s.Missing)
	fmt.Fprintf(b, "Extra in Our Data:           %d\n", s.Extra)
	fmt.Fprintf(b, "Coverage:                    %d%%\n\n", s.CoveragePercent)

	if len(r.YearMismatches) > 0 {
		section(b, fmt.Sprintf("YEAR MISMATCHES (%d organizations)", len(r.YearMismatches)))
		fmt.Fprint(b, "These organizations exist in both datasets but have different years.\nMANUAL REVIEW NEEDED!\n\n")
		for i, m := range r.YearMismatches {
			fmt.Fprintf(b, "\n%d. %s\n", i+1, m.Name)
			fmt.Fprintf(b, "   Match: %d%%\n", m.MatchPercent)
			fmt.Fprintf(b, "   API years:  %s\n", listYears(m.Authoritative))
			fmt.Fprintf(b, "   Our years:  %s\n", listYears(m.Candidate))
			if len(m.MissingYears) > 0 {
				fmt.Fprintf(b, "   MISSING:    %s\n", listYears(m.MissingYears))
			}
			if len(m.ExtraYears) > 0 {
				fmt.Fprintf(b, "   EXTRA:      %s\n", listYears(m.ExtraYears))
			}
		}
	}

	if len(r.Missing) > 0 {
		section(b, fmt.Sprintf("MISSING FROM OUR DATA (%d organizations)", len(r.Missing)))
		fmt.Fprint(b, "These organizations are in the API but not in our data.\nMANUAL REVIEW NEEDED!\n\n")
		writeEntries(b, r.Missing)
	}

	if len(r.Extra) > 0 {
		section(b, fmt.Sprintf("EXTRA IN OUR DATA (%d organizations)", len(r.Extra)))
		fmt.Fprint(b, "These organizations are in our data but not in the API.\nThey may come from years the API does not cover or use a different name.\n\n")
		writeEntries(b, r.Extra)
	}

	section(b, fmt.Sprintf("PERFECT MATCHES (%d organizations)", len(r.PerfectMatches)))
	fmt.Fprint(b, "These organizations match by name and years.\n\n")
	byCount := map[int][]string{}
	for _, m := range r.PerfectMatches {
		byCount[len(m.Years)] = append(byCount[len(m.Years)], m.Name)
	}
	counts := make([]int, 0, len(byCount))
	for c := range byCount {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	for _, c := range counts {
		names := byCount[c]
		sort.Strings(names)
		fmt.Fprintf(b, "\n%d years (%d organizations):\n", c, len(names))
		for _, n := range names {
			fmt.Fprintf(b, "  - %s\n", n)
		}
	}

	return eris.Wrap(b.Flush(), "report: write text")
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", heavyRule, title, heavyRule)
}

func writeEntries(w io.Writer, es []compare.Entry) {
	for i, e := range es {
		fmt.Fprintf(w, "%3d. %s\n", i+1, e.Name)
		fmt.Fprintf(w, "     Years: %s (%d years)\n", listYears(e.Years), len(e.Years))
	}
}
