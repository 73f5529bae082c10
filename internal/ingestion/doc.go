// Package ingestion runs the intake batch: discover workbooks, extract
// measurements, persist them one transaction per file, move processed
// files into success/ and append every problem to error_log.csv.
//
// A failure in one file never stops the batch. Runs are serialized within
// the process.
package ingestion
