package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/ketankauntia/gsoc-orgs/internal/compare"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
)

func sampleReport() *compare.Report {
	years := func(ys ...int) map[string]model.AuthoritativeYear {
		m := map[string]model.AuthoritativeYear{}
		for _, y := range ys {
			m[strconv.Itoa(y)] = model.AuthoritativeYear{}
		}
		return m
	}
	return compare.Compare(
		[]model.AuthoritativeOrg{
			{Name: "Kodi", Years: years(2016, 2017)},
			{Name: "GNOME", Years: years(2016, 2017, 2018)},
			{Name: "Debian", Years: years(2019)},
			{Name: "VLC", Years: years(2020, 2021)},
		},
		[]model.Organization{
			{Name: "Kodi", YearsAppeared: []int{2016, 2017}},
			{Name: "GNOME", YearsAppeared: []int{2016, 2019}},
			{Name: "VLC", YearsAppeared: []int{2020, 2021}},
			{Name: "PEcAn", YearsAppeared: []int{2015}},
		},
	)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteCSV(dir, sampleReport())
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	mism := readCSV(t, filepath.Join(dir, YearMismatchesFile))
	require.Len(t, mism, 2)
	assert.Equal(t, []string{"GNOME", "25%", "2016,2017,2018", "2016,2019", "2017,2018", "2019", StatusNeedsReview}, mism[1])

	missing := readCSV(t, filepath.Join(dir, MissingFile))
	assert.Equal(t, [][]string{{"Organization Name", "Years", "Status"}, {"Debian", "2019", StatusMissing}}, missing)

	extra := readCSV(t, filepath.Join(dir, ExtraFile))
	assert.Equal(t, []string{"PEcAn", "2015", StatusExtra}, extra[1])
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Perfect Matches:             2 (50%)")
	assert.Contains(t, out, "YEAR MISMATCHES (1 organizations)")
	assert.Contains(t, out, "   MISSING:    [2017, 2018]")
	assert.Contains(t, out, "   EXTRA:      [2019]")
	assert.Contains(t, out, "  1. Debian\n     Years: [2019] (1 years)")
	assert.Contains(t, out, "EXTRA IN OUR DATA (1 organizations)")
	assert.Contains(t, out, "2 years (2 organizations):\n  - Kodi\n  - VLC\n")
}

func TestWriteText_NoGaps(t *testing.T) {
	r := compare.Compare(nil, nil)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.NotContains(t, buf.String(), "YEAR MISMATCHES")
	assert.Contains(t, buf.String(), "PERFECT MATCHES (0 organizations)")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), XLSXFile)
	require.NoError(t, WriteXLSX(path, sampleReport()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, SummarySheet, f.Sheets[0].Name)

	missing := f.Sheet[MissingSheet]
	require.NotNil(t, missing)
	require.Len(t, missing.Rows, 2)
	assert.Equal(t, "Debian", missing.Rows[1].Cells[0].String())
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(dir, sampleReport())
	require.NoError(t, err)
	assert.Len(t, paths, 6)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var decoded compare.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Summary.PerfectMatches)
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport(), 1)
	out := buf.String()

	assert.Contains(t, out, "Perfect matches:                 2 (50%)")
	assert.Contains(t, out, "YEAR MISMATCHES - TOP 1")
	assert.Contains(t, out, "1. GNOME (25% match)")
	assert.Contains(t, out, "MISSING FROM OUR DATA - first 1 of 1")
	assert.Contains(t, out, "1. PEcAn - [2015]")
}
