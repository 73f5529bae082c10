// Package storage persists measurements in SQLite.
//
// The measurement_data table is append-only: rows are written by ingestion
// and never updated. Its layout matches the table earlier plant tooling
// created, so an existing database.db can be opened in place; migrations
// only add what is missing.
package storage
