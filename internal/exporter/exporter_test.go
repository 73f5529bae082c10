package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"micromes/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		existing *string
		options  WriteOptions
		expected [][]string
	}{
		{
			name:     "new file gets headers",
			options:  WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}},
			expected: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:     "overwrite replaces content",
			existing: strPtr("old,row\n"),
			options:  WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}},
			expected: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:     "append skips headers on existing file",
			existing: strPtr("a,b\n1,2\n"),
			options:  WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"3", "4"}}, Append: true},
			expected: [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}},
		},
		{
			name:     "append to empty file writes headers",
			existing: strPtr(""),
			options:  WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"3", "4"}}, Append: true},
			expected: [][]string{{"a", "b"}, {"3", "4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "out.csv")
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
			if tt.existing != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.existing), 0644))
			}

			require.NoError(t, NewCSVWriter(testLogger()).WriteCSV(path, tt.options))
			assert.Equal(t, tt.expected, readCSV(t, path))
		})
	}
}

func TestWriteCSVCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	err := NewCSVWriter(testLogger()).WriteCSV(path, WriteOptions{Records: [][]string{{"x"}}})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestErrorLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.csv")
	log := NewErrorLog(path, testLogger())
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	require.NoError(t, log.Append(ErrorLogEntry{Timestamp: ts, FileName: "a.xlsx", Message: "first"}))
	require.NoError(t, log.Append(
		ErrorLogEntry{Timestamp: ts, FileName: "b.xlsx", Message: "second, with comma"},
		ErrorLogEntry{Timestamp: ts, FileName: "c.xlsx", Message: "third"},
	))
	require.NoError(t, log.Append())

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Timestamp", "Filename", "Error"}, records[0])
	assert.Equal(t, []string{"2024-03-05 14:07:09", "a.xlsx", "first"}, records[1])
	assert.Equal(t, "second, with comma", records[2][2])
	assert.Equal(t, "c.xlsx", records[3][1])
	assert.Equal(t, path, log.Path())
}

func sampleChart() *domain.ControlChart {
	lower, upper, cpk := 9.0, 11.0, 1.5
	return &domain.ControlChart{
		Request:      domain.ChartRequest{PartNumber: "03232-0010-000", Parameter: "Gap", Month: domain.Month{Year: 2024, Month: time.March}},
		ModuleName:   "Front Rail",
		SampleSize:   10,
		SubgroupSize: 5,
		Subgroups: []domain.Subgroup{
			{Index: 1, Size: 5, Mean: 10.0, Range: 0.2},
			{Index: 2, Size: 5, Mean: 10.1, Range: 0.4},
		},
		Mean:    10.05,
		StdDev:  0.1,
		UCL:     10.35,
		LCL:     9.75,
		RCenter: 0.3,
		Capability: domain.Capability{
			Status: domain.CapabilityComputed,
			Limits: domain.SpecLimits{Lower: &lower, Upper: &upper},
			CPK:    &cpk,
		},
	}
}

func TestWriteChartWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChartWorkbook(&buf, sampleChart()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{chartDataSheet, chartSummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(chartDataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Subgroup", rows[0][0])
	assert.Equal(t, "X-bar", rows[0][2])
	assert.Equal(t, "10.1", rows[2][2])
	assert.Equal(t, "10.35", rows[1][3])

	summary, err := f.GetRows(chartSummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Part Number", "03232-0010-000"}, summary[0])
	assert.Equal(t, []string{"Month", "2024-03"}, summary[3])
	assert.Equal(t, []string{"Capability", "computed"}, summary[13])
}

func TestWriteChartWorkbookWithoutSubgroups(t *testing.T) {
	chart := sampleChart()
	chart.Subgroups = nil
	chart.Request.Month = domain.Month{}

	var buf bytes.Buffer
	require.NoError(t, WriteChartWorkbook(&buf, chart))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(chartSummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Month", "all"}, summary[3])
}

func TestWriteChartNil(t *testing.T) {
	assert.Error(t, WriteChartWorkbook(io.Discard, nil))
	assert.Error(t, WriteChartCSV(io.Discard, nil))
}

func TestWriteChartCSV(t *testing.T) {
	chart := sampleChart()
	chart.Capability.Limits.Lower = nil

	var buf bytes.Buffer
	require.NoError(t, WriteChartCSV(&buf, chart))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, chartCSVHeaders, records[0])
	assert.Equal(t, []string{"1", "5", "10", "10.35", "9.75", "10.05", "0.2", "0.3", "", "11", "1.5"}, records[1])
}
