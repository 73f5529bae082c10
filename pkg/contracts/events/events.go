// Package events contains the message contracts pushed to WebSocket
// clients while ingestion runs.
package events

import (
	"time"
)

// MessageType identifies the payload of a Message
type MessageType string

const (
	TypeConnection        MessageType = "connection"
	TypeIngestionStarted  MessageType = "ingestion:started"
	TypeIngestionFile     MessageType = "ingestion:file"
	TypeIngestionComplete MessageType = "ingestion:complete"
)

// Message is the envelope of every server-sent frame
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Connection is sent once to a client after it connects
type Connection struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// IngestionStarted announces a run and how many workbooks it found
type IngestionStarted struct {
	RunID string `json:"run_id"`
	Files int    `json:"files"`
}

// FileProgress reports the outcome of one workbook
type FileProgress struct {
	RunID   string `json:"run_id"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	File    string `json:"file"`
	Outcome string `json:"outcome"`
	Records int    `json:"records"`
	Issues  int    `json:"issues"`
	Reason  string `json:"reason,omitempty"`
}

// IngestionComplete summarizes a finished run
type IngestionComplete struct {
	RunID          string `json:"run_id"`
	FilesScanned   int    `json:"files_scanned"`
	FilesMoved     int    `json:"files_moved"`
	RecordsWritten int    `json:"records_written"`
	Errors         int    `json:"errors"`
	DurationMS     int64  `json:"duration_ms"`
}

// New stamps a message with the current time
func New(t MessageType, data interface{}, traceID string) Message {
	return Message{Type: t, Data: data, Timestamp: time.Now(), TraceID: traceID}
}
