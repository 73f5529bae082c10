package domain

import (
	"time"
)

// UnknownPartNumber is the value used when neither the workbook nor its
// filename yields a part number.
const UnknownPartNumber = "Unknown"

// PartNumberSource records where a resolved part number came from
type PartNumberSource string

const (
	PartNumberFromCell     PartNumberSource = "cell"
	PartNumberFromFilename PartNumberSource = "filename"
	PartNumberUnknown      PartNumberSource = "unknown"
)

// PartNumber is a resolved part number together with its origin. A cell that
// literally contains "Unknown" has Source == PartNumberFromCell.
type PartNumber struct {
	Value  string           `json:"value"`
	Source PartNumberSource `json:"source"`
}

// IsUnknown reports whether resolution fell through to the sentinel
func (p PartNumber) IsUnknown() bool {
	return p.Source == PartNumberUnknown
}

func (p PartNumber) String() string {
	return p.Value
}

// SpecLimits holds the optional lower/upper specification limits of a
// parameter. A nil field means the limit is not configured.
type SpecLimits struct {
	Lower *float64 `json:"lower_limit"`
	Upper *float64 `json:"upper_limit"`
}

// Configured reports whether both limits are present
func (l SpecLimits) Configured() bool {
	return l.Lower != nil && l.Upper != nil
}

// Limit is a small helper for building SpecLimits literals
func Limit(v float64) *float64 {
	return &v
}

// MeasurementDraft is a measurement extracted from a workbook but not yet
// persisted.
type MeasurementDraft struct {
	ParameterName string     `json:"parameter_name"`
	PartNumber    string     `json:"part_number"`
	SerialNumber  string     `json:"serial_number"`
	Value         float64    `json:"value"`
	Limits        SpecLimits `json:"limits"`
	SourceRow     int        `json:"source_row"`
}

// MeasurementRecord is one row of the append-only measurement table
type MeasurementRecord struct {
	ID            int64      `json:"id"`
	ParameterName string     `json:"parameter_name"`
	PartNumber    string     `json:"part_number"`
	SerialNumber  string     `json:"serial_number"`
	Value         float64    `json:"value"`
	MeasuredDate  time.Time  `json:"measured_date"`
	Limits        SpecLimits `json:"limits"`
}

// RecordFromDraft stamps a draft with the processing date
func RecordFromDraft(d MeasurementDraft, measured time.Time) MeasurementRecord {
	return MeasurementRecord{
		ParameterName: d.ParameterName,
		PartNumber:    d.PartNumber,
		SerialNumber:  d.SerialNumber,
		Value:         d.Value,
		MeasuredDate:  time.Date(measured.Year(), measured.Month(), measured.Day(), 0, 0, 0, 0, time.UTC),
		Limits:        d.Limits,
	}
}

// IngestedFile records a workbook whose measurements were persisted
type IngestedFile struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	Checksum   string    `json:"checksum"`
	Records    int       `json:"records"`
	IngestedAt time.Time `json:"ingested_at"`
}
