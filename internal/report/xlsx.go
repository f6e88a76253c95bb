package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
)

// Sheet names written by WriteXLSX.
const (
	SummarySheet        = "Summary"
	YearMismatchesSheet = "Year Mismatches"
	MissingSheet        = "Missing"
	ExtraSheet          = "Extra"
)

// WriteXLSX writes a workbook with a summary sheet followed by the three
// review tables.
func WriteXLSX(path string, r *compare.Report) error {
	f := xlsx.NewFile()

	s := r.Summary
	sheet, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addRows(sheet, [][]string{{"Metric", "Value"}})
	for _, kv := range []struct {
		label string
		value int
	}{
		{"API organizations", s.AuthoritativeTotal},
		{"Our organizations", s.CandidateTotal},
		{"Perfect matches", s.PerfectMatches},
		{"Year mismatches", s.YearMismatches},
		{"Close mismatches", s.CloseMismatches},
		{"Missing from ours", s.Missing},
		{"Extra in ours", s.Extra},
		{"Match %", s.MatchPercent},
		{"Coverage %", s.CoveragePercent},
	} {
		row := sheet.AddRow()
		row.AddCell().SetString(kv.label)
		row.AddCell().SetInt(kv.value)
	}

	tables := Tables(r)
	for _, t := range []struct{ sheet, file string }{
		{YearMismatchesSheet, YearMismatchesFile},
		{MissingSheet, MissingFile},
		{ExtraSheet, ExtraFile},
	} {
		sh, err := f.AddSheet(t.sheet)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", t.sheet)
		}
		addRows(sh, tables[t.file])
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addRows(sheet *xlsx.Sheet, rows [][]string) {
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
}
