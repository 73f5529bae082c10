// Package validation checks the filesystem locations micromes reads and
// writes: the intake directory, its success folder and the database
// directory. The readiness probe and the ingestion service use it to fail
// early with a clear message instead of a half-processed batch.
package validation
