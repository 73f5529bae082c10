package extraction

import "fmt"

// IssueKind classifies a non-fatal extraction problem
type IssueKind string

const (
	// IssueConfiguration means a parameter's columns do not fit the sheet.
	// The parameter is skipped; other parameters still run.
	IssueConfiguration IssueKind = "configuration"
	// IssueParse means one row could not be turned into a measurement
	IssueParse IssueKind = "parse"
)

// Issue is a parameter- or row-scoped problem found while extracting
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Parameter string    `json:"parameter"`
	Row       int       `json:"row,omitempty"` // 1-based sheet row, 0 for configuration issues
	Message   string    `json:"message"`
}

func (i Issue) String() string {
	if i.Kind == IssueParse {
		return fmt.Sprintf("row %d (%s): %s", i.Row, i.Parameter, i.Message)
	}
	return fmt.Sprintf("parameter %q: %s", i.Parameter, i.Message)
}
