package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"micromes/pkg/contracts/domain"
)

// DateLayout is the text format of measurement_date
const DateLayout = "2006-01-02"

const measurementColumns = `id, parameter_name, pn, sn, measurement_value, measurement_date, lower_limit, upper_limit`

// Store manages measurement persistence backed by SQLite
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to (or creates) the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertBatch writes every record of one workbook plus its ingested-file
// row in a single transaction. It returns the number of measurements written.
func (s *Store) InsertBatch(ctx context.Context, records []domain.MeasurementRecord, file domain.IngestedFile) (int, error) {
	if len(records) == 0 {
		return 0, errors.New("no records to insert")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement_data
        (parameter_name, pn, sn, measurement_value, measurement_date, lower_limit, upper_limit)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ParameterName,
			rec.PartNumber,
			rec.SerialNumber,
			rec.Value,
			rec.MeasuredDate.Format(DateLayout),
			nullableFloat(rec.Limits.Lower),
			nullableFloat(rec.Limits.Upper),
		); err != nil {
			return 0, fmt.Errorf("insert measurement: %w", err)
		}
	}

	ingestedAt := file.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ingested_files (file_name, checksum, records, ingested_at) VALUES (?, ?, ?, ?)`,
		file.FileName,
		file.Checksum,
		len(records),
		ingestedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return 0, fmt.Errorf("record ingested file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(records), nil
}

// Slice returns the measurements of (pn, parameter) in month ordered by
// date then insertion order. A zero month returns every month.
func (s *Store) Slice(ctx context.Context, pn, parameter string, month domain.Month) ([]domain.MeasurementRecord, error) {
	query := `SELECT ` + measurementColumns + ` FROM measurement_data WHERE pn = ? AND parameter_name = ?`
	args := []any{pn, parameter}
	if !month.IsZero() {
		query += ` AND measurement_date >= ? AND measurement_date < ?`
		args = append(args, month.Start().Format(DateLayout), month.End().Format(DateLayout))
	}
	query += ` ORDER BY measurement_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slice: %w", err)
	}
	defer rows.Close()

	var records []domain.MeasurementRecord
	for rows.Next() {
		rec, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByPartNumber returns how many measurement rows exist for pn
func (s *Store) CountByPartNumber(ctx context.Context, pn string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM measurement_data WHERE pn = ?`, pn).Scan(&count); err != nil {
		return 0, fmt.Errorf("count by part number: %w", err)
	}
	return count, nil
}

// ChartableMonths returns the months, newest first, in which (pn,
// parameter) has at least min distinct (serial, value) pairs
func (s *Store) ChartableMonths(ctx context.Context, pn, parameter string, min int) ([]domain.Month, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT month FROM (
            SELECT DISTINCT strftime('%Y-%m', measurement_date) AS month, sn, measurement_value
            FROM measurement_data
            WHERE pn = ? AND parameter_name = ?
        )
        WHERE month IS NOT NULL
        GROUP BY month
        HAVING COUNT(1) >= ?
        ORDER BY month DESC`, pn, parameter, min)
	if err != nil {
		return nil, fmt.Errorf("query chartable months: %w", err)
	}
	defer rows.Close()

	var months []domain.Month
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		m, err := domain.ParseMonth(raw)
		if err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// FindIngestedFile returns the earliest ingestion of content with checksum,
// or nil when there is none
func (s *Store) FindIngestedFile(ctx context.Context, checksum string) (*domain.IngestedFile, error) {
	var (
		file       domain.IngestedFile
		ingestedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, checksum, records, ingested_at FROM ingested_files WHERE checksum = ? ORDER BY id LIMIT 1`,
		checksum,
	).Scan(&file.ID, &file.FileName, &file.Checksum, &file.Records, &ingestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ingested file: %w", err)
	}
	if file.IngestedAt, err = time.Parse(time.RFC3339Nano, ingestedAt); err != nil {
		return nil, fmt.Errorf("parse ingested_at %q: %w", ingestedAt, err)
	}
	return &file, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row scanner) (domain.MeasurementRecord, error) {
	var (
		rec          domain.MeasurementRecord
		param, pn    sql.NullString
		sn, date     sql.NullString
		value        sql.NullFloat64
		lower, upper sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &param, &pn, &sn, &value, &date, &lower, &upper); err != nil {
		return rec, fmt.Errorf("scan measurement: %w", err)
	}
	rec.ParameterName = param.String
	rec.PartNumber = pn.String
	rec.SerialNumber = sn.String
	rec.Value = value.Float64
	if date.Valid {
		parsed, err := time.Parse(DateLayout, date.String)
		if err != nil {
			return rec, fmt.Errorf("parse measurement_date %q: %w", date.String, err)
		}
		rec.MeasuredDate = parsed
	}
	rec.Limits = domain.SpecLimits{Lower: floatPtr(lower), Upper: floatPtr(upper)}
	return rec, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
