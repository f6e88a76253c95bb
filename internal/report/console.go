package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
)

// PrintSummary prints the headline numbers and the first topN entries of
// each gap list.
func PrintSummary(w io.Writer, r *compare.Report, topN int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	s := r.Summary
	fmt.Fprintf(w, "\n%s\n", cyan("COMPARISON SUMMARY"))
	fmt.Fprintf(w, "%s\n", gray(lightRule))
	fmt.Fprintf(w, "Total API organizations:         %d\n", s.AuthoritativeTotal)
	fmt.Fprintf(w, "Total our organizations:         %d\n", s.CandidateTotal)
	fmt.Fprintf(w, "Perfect matches:                 %s\n", green(fmt.Sprintf("%d (%d%%)", s.PerfectMatches, percent(s.PerfectMatches, s.AuthoritativeTotal))))
	fmt.Fprintf(w, "Year mismatches:                 %s\n", yellow(fmt.Sprintf("%d (%d%%)", s.YearMismatches, percent(s.YearMismatches, s.AuthoritativeTotal))))
	fmt.Fprintf(w, "Only in API (missing from ours): %s\n", red(s.Missing))
	fmt.Fprintf(w, "Only in ours (not in API):       %d\n", s.Extra)

	if topN <= 0 {
		return
	}

	if len(r.YearMismatches) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("YEAR MISMATCHES - TOP %d", min(topN, len(r.YearMismatches)))))
		for i, m := range r.YearMismatches[:min(topN, len(r.YearMismatches))] {
			fmt.Fprintf(w, "%d. %s (%d%% match)\n", i+1, m.Name, m.MatchPercent)
			fmt.Fprintf(w, "   API:  %s\n", listYears(m.Authoritative))
			fmt.Fprintf(w, "   Ours: %s\n", listYears(m.Candidate))
			if len(m.MissingYears) > 0 {
				fmt.Fprintf(w, "   %s %s\n", red("Missing:"), listYears(m.MissingYears))
			}
			if len(m.ExtraYears) > 0 {
				fmt.Fprintf(w, "   %s %s\n", yellow("Extra:"), listYears(m.ExtraYears))
			}
		}
	}
	printEntries(w, cyan, fmt.Sprintf("MISSING FROM OUR DATA - first %d of %d", min(topN, len(r.Missing)), len(r.Missing)), r.Missing, topN)
	printEntries(w, cyan, fmt.Sprintf("EXTRA IN OUR DATA - first %d of %d", min(topN, len(r.Extra)), len(r.Extra)), r.Extra, topN)
}

func printEntries(w io.Writer, title func(a ...interface{}) string, heading string, es []compare.Entry, topN int) {
	if len(es) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title(heading))
	for i, e := range es[:min(topN, len(es))] {
		fmt.Fprintf(w, "%d. %s - %s\n", i+1, e.Name, listYears(e.Years))
	}
}
