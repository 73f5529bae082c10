package ingestion

import "time"

// File outcomes
const (
	OutcomeIngested = "ingested"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// ReasonCancelled marks workbooks a cancelled run never reached
const ReasonCancelled = "run cancelled"

// UnmovedFile is a workbook left in the intake directory
type UnmovedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FileOutcome is the per-workbook result of a run
type FileOutcome struct {
	Name       string `json:"name"`
	PartNumber string `json:"part_number,omitempty"`
	Source     string `json:"part_number_source,omitempty"`
	Outcome    string `json:"outcome"`
	Records    int    `json:"records"`
	Issues     int    `json:"issues"`
	Checksum   string `json:"checksum,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	Moved      bool   `json:"moved"`
	Reason     string `json:"reason,omitempty"`
}

// Report summarizes one ingestion run
type Report struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	FilesScanned   int           `json:"files_scanned"`
	FilesMoved     int           `json:"files_moved"`
	RecordsWritten int           `json:"records_written"`
	Errors         int           `json:"errors"`
	Unmoved        []UnmovedFile `json:"unmoved"`
	Files          []FileOutcome `json:"files"`
	ErrorLog       string        `json:"error_log,omitempty"`
}
