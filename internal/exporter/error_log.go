package exporter

import (
	"log/slog"
	"time"
)

// ErrorLogTimeLayout is the timestamp format of error_log.csv
const ErrorLogTimeLayout = "2006-01-02 15:04:05"

var errorLogHeaders = []string{"Timestamp", "Filename", "Error"}

// ErrorLogEntry is one line of the ingestion error log
type ErrorLogEntry struct {
	Timestamp time.Time
	FileName  string
	Message   string
}

// ErrorLog is the append-only CSV log operators inspect after ingestion
type ErrorLog struct {
	path   string
	writer *CSVWriter
}

// NewErrorLog creates an error log writing to path
func NewErrorLog(path string, logger *slog.Logger) *ErrorLog {
	return &ErrorLog{path: path, writer: NewCSVWriter(logger)}
}

// Path returns the log file location
func (l *ErrorLog) Path() string {
	return l.path
}

// Append writes entries to the log; the header is written once, when the
// file is first created
func (l *ErrorLog) Append(entries ...ErrorLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{e.Timestamp.Format(ErrorLogTimeLayout), e.FileName, e.Message})
	}
	return l.writer.AppendToCSV(l.path, errorLogHeaders, records)
}
