// Package report renders comparison reports as JSON, CSV, text and XLSX
// files and as a console summary.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
)

// File names written by WriteAll.
const (
	JSONFile           = "comparison_report.json"
	TextFile           = "comparison_report.txt"
	XLSXFile           = "comparison_report.xlsx"
	YearMismatchesFile = "year_mismatches.csv"
	MissingFile        = "missing_orgs.csv"
	ExtraFile          = "extra_orgs.csv"
)

// Status labels used in tabular output.
const (
	StatusNeedsReview = "NEEDS_REVIEW"
	StatusMissing     = "MISSING_FROM_OURS"
	StatusExtra       = "EXTRA_IN_OURS"
)

// WriteAll writes every report format into dir and returns the written
// paths.
func WriteAll(dir string, r *compare.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create dir")
	}

	var paths []string
	jsonPath := filepath.Join(dir, JSONFile)
	if err := WriteJSON(jsonPath, r); err != nil {
		return nil, err
	}
	paths = append(paths, jsonPath)

	csvPaths, err := WriteCSV(dir, r)
	if err != nil {
		return nil, err
	}
	paths = append(paths, csvPaths...)

	textPath := filepath.Join(dir, TextFile)
	f, err := os.Create(textPath)
	if err != nil {
		return nil, eris.Wrap(err, "report: create text")
	}
	if err := WriteText(f, r); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "report: close text")
	}
	paths = append(paths, textPath)

	xlsxPath := filepath.Join(dir, XLSXFile)
	if err := WriteXLSX(xlsxPath, r); err != nil {
		return nil, err
	}
	paths = append(paths, xlsxPath)

	zap.L().Info("reports written", zap.String("dir", dir), zap.Int("files", len(paths)))
	return paths, nil
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create dir")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal json")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// joinYears renders years as "2016,2017".
func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

// listYears renders years as "[2016, 2017]".
func listYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}
