package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
)

// Tables returns the three review tables, header row first, keyed by
// CSV file name.
func Tables(r *compare.Report) map[string][][]string {
	mismatches := [][]string{{"Organization Name", "Match %", "API Years", "Our Years", "Missing Years", "Extra Years", "Status"}}
	for _, m := range r.YearMismatches {
		mismatches = append(mismatches, []string{
			m.Name,
			strconv.Itoa(m.MatchPercent) + "%",
			joinYears(m.Authoritative),
			joinYears(m.Candidate),
			joinYears(m.MissingYears),
			joinYears(m.ExtraYears),
			StatusNeedsReview,
		})
	}
	return map[string][][]string{
		YearMismatchesFile: mismatches,
		MissingFile:        entryTable(r.Missing, StatusMissing),
		ExtraFile:          entryTable(r.Extra, StatusExtra),
	}
}

func entryTable(es []compare.Entry, status string) [][]string {
	rows := [][]string{{"Organization Name", "Years", "Status"}}
	for _, e := range es {
		rows = append(rows, []string{e.Name, joinYears(e.Years), status})
	}
	return rows
}

// WriteCSV writes year_mismatches.csv, missing_orgs.csv and extra_orgs.csv
// into dir.
func WriteCSV(dir string, r *compare.Report) ([]string, error) {
	tables := Tables(r)
	var paths []string
	for _, name := range []string{YearMismatchesFile, MissingFile, ExtraFile} {
		path := filepath.Join(dir, name)
		if err := writeCSVFile(path, tables[name]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
