package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"micromes/internal/config"
	"micromes/internal/exporter"
	"micromes/internal/extraction"
	"micromes/internal/files"
	"micromes/internal/infrastructure"
	"micromes/pkg/contracts/domain"
	"micromes/pkg/contracts/events"
)

// Store persists extracted measurements
type Store interface {
	InsertBatch(ctx context.Context, records []domain.MeasurementRecord, file domain.IngestedFile) (int, error)
	FindIngestedFile(ctx context.Context, checksum string) (*domain.IngestedFile, error)
}

// Extractor reads one workbook
type Extractor interface {
	ExtractFile(path string) (*extraction.Result, error)
}

// ProgressPublisher receives progress messages while a run is active
type ProgressPublisher interface {
	Publish(msg events.Message)
}

// Service runs ingestion batches over the intake directory
type Service struct {
	intakeDir  string
	successDir string

	extractor Extractor
	store     Store
	discovery *files.Discovery
	mover     *files.Manager
	errorLog  *exporter.ErrorLog

	tracer   trace.Tracer
	metrics  *infrastructure.SPCMetrics
	progress ProgressPublisher
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex
}

// NewService creates an ingestion service over paths
func NewService(paths *config.Paths, extractor Extractor, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "ingestion"))

	return &Service{
		intakeDir:  paths.IntakeDir,
		successDir: paths.SuccessDir,
		extractor:  extractor,
		store:      store,
		discovery:  files.NewDiscovery(paths.IntakeDir),
		mover:      files.NewManager(logger),
		errorLog:   exporter.NewErrorLog(paths.ErrorLog, logger),
		tracer:     noop.NewTracerProvider().Tracer("ingestion"),
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the clock used to stamp measurements and log entries
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetTelemetry attaches a tracer and counters; either may be nil
func (s *Service) SetTelemetry(tracer trace.Tracer, metrics *infrastructure.SPCMetrics) {
	if tracer != nil {
		s.tracer = tracer
	}
	s.metrics = metrics
}

// SetProgress attaches a publisher for run progress
func (s *Service) SetProgress(p ProgressPublisher) {
	s.progress = p
}

// Run processes every workbook currently in the intake directory. The
// returned error is only set when the batch cannot start at all; file
// failures are reported in the Report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "ingestion.run")
	defer span.End()

	report := &Report{
		RunID:     infrastructure.NewRunID(),
		StartedAt: s.now(),
		Unmoved:   []UnmovedFile{},
		Files:     []FileOutcome{},
		ErrorLog:  s.errorLog.Path(),
	}
	span.SetAttributes(attribute.String("ingestion.run_id", report.RunID))

	if err := s.mover.EnsureDirectory(s.successDir); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "success directory unavailable")
		return nil, err
	}

	found, err := s.discovery.FindExcelFiles(s.intakeDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "intake directory unreadable")
		return nil, fmt.Errorf("failed to scan intake directory: %w", err)
	}
	report.FilesScanned = len(found)

	s.logger.InfoContext(ctx, "Ingestion run started",
		slog.String("run_id", report.RunID),
		slog.String("intake_dir", s.intakeDir),
		slog.Int("files", len(found)))
	s.publish(ctx, events.TypeIngestionStarted, events.IngestionStarted{RunID: report.RunID, Files: len(found)})

	for i, fi := range found {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Ingestion run cancelled",
				slog.String("run_id", report.RunID),
				slog.Int("remaining", len(found)-i))
			for _, rest := range found[i:] {
				report.Unmoved = append(report.Unmoved, UnmovedFile{Name: rest.Name, Reason: ReasonCancelled})
			}
			break
		}

		outcome, entries := s.processFile(ctx, fi)
		s.appendErrors(ctx, entries)

		report.Files = append(report.Files, outcome)
		report.RecordsWritten += outcome.Records
		report.Errors += len(entries)
		if outcome.Moved {
			report.FilesMoved++
		} else {
			report.Unmoved = append(report.Unmoved, UnmovedFile{Name: outcome.Name, Reason: outcome.Reason})
		}

		s.metrics.RecordFile(ctx, outcome.Outcome, outcome.Records, len(entries))
		s.publish(ctx, events.TypeIngestionFile, events.FileProgress{
			RunID:   report.RunID,
			Index:   i + 1,
			Total:   len(found),
			File:    outcome.Name,
			Outcome: outcome.Outcome,
			Records: outcome.Records,
			Issues:  outcome.Issues,
			Reason:  outcome.Reason,
		})
	}

	report.Duration = s.now().Sub(report.StartedAt)
	span.SetAttributes(
		attribute.Int("ingestion.files_scanned", report.FilesScanned),
		attribute.Int("ingestion.files_moved", report.FilesMoved),
		attribute.Int("ingestion.records_written", report.RecordsWritten),
		attribute.Int("ingestion.errors", report.Errors),
	)

	s.logger.InfoContext(ctx, "Ingestion run completed",
		slog.String("run_id", report.RunID),
		slog.Int("files_scanned", report.FilesScanned),
		slog.Int("files_moved", report.FilesMoved),
		slog.Int("records_written", report.RecordsWritten),
		slog.Int("errors", report.Errors),
		slog.Duration("duration", report.Duration))
	s.publish(ctx, events.TypeIngestionComplete, events.IngestionComplete{
		RunID:          report.RunID,
		FilesScanned:   report.FilesScanned,
		FilesMoved:     report.FilesMoved,
		RecordsWritten: report.RecordsWritten,
		Errors:         report.Errors,
		DurationMS:     report.Duration.Milliseconds(),
	})

	return report, nil
}

// processFile handles one workbook and returns its outcome plus the error
// log entries it produced
func (s *Service) processFile(ctx context.Context, fi files.FileInfo) (FileOutcome, []exporter.ErrorLogEntry) {
	ctx, span := s.tracer.Start(ctx, "ingestion.file", trace.WithAttributes(
		attribute.String("ingestion.file", fi.Name),
		attribute.Int64("ingestion.file_size", fi.Size),
	))
	defer span.End()

	outcome := FileOutcome{Name: fi.Name}
	var entries []exporter.ErrorLogEntry
	logErr := func(msg string) {
		entries = append(entries, exporter.ErrorLogEntry{Timestamp: s.now(), FileName: fi.Name, Message: msg})
	}
	fail := func(reason string, err error) (FileOutcome, []exporter.ErrorLogEntry) {
		outcome.Outcome = OutcomeFailed
		outcome.Reason = reason
		logErr(fmt.Sprintf("%s: %v", reason, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		s.logger.ErrorContext(ctx, "File ingestion failed",
			slog.String("file", fi.Name),
			slog.String("reason", reason),
			slog.String("error", err.Error()))
		return outcome, entries
	}

	checksum, err := fileChecksum(fi.Path)
	if err != nil {
		return fail("checksum failed", err)
	}
	outcome.Checksum = checksum

	if prior, err := s.store.FindIngestedFile(ctx, checksum); err != nil {
		s.logger.WarnContext(ctx, "Duplicate lookup failed",
			slog.String("file", fi.Name),
			slog.String("error", err.Error()))
	} else if prior != nil {
		outcome.Duplicate = true
		msg := fmt.Sprintf("identical content already ingested as %s on %s",
			prior.FileName, prior.IngestedAt.Format(exporter.ErrorLogTimeLayout))
		logErr(msg)
		s.logger.WarnContext(ctx, "Workbook previously ingested",
			slog.String("file", fi.Name),
			slog.String("previous_file", prior.FileName),
			slog.String("checksum", checksum))
	}

	result, err := s.extractor.ExtractFile(fi.Path)
	if err != nil {
		return fail("extraction failed", err)
	}

	outcome.PartNumber = result.PartNumber.Value
	outcome.Source = string(result.PartNumber.Source)
	outcome.Issues = len(result.Issues)
	span.SetAttributes(
		attribute.String("ingestion.part_number", result.PartNumber.Value),
		attribute.Int("ingestion.drafts", len(result.Drafts)),
		attribute.Int("ingestion.issues", len(result.Issues)),
	)

	for _, issue := range result.Issues {
		logErr(issue.String())
		infrastructure.AddSpanEvent(ctx, "extraction.issue",
			attribute.String("issue.kind", string(issue.Kind)),
			attribute.String("issue.parameter", issue.Parameter),
			attribute.Int("issue.row", issue.Row),
		)
	}
	if len(result.Issues) > 0 {
		s.logger.WarnContext(ctx, "Extraction issues",
			slog.String("file", fi.Name),
			slog.Int("issues", len(result.Issues)))
	}

	if len(result.Drafts) == 0 {
		outcome.Outcome = OutcomeSkipped
		outcome.Reason = "no measurements extracted"
		s.logger.WarnContext(ctx, "No measurements extracted, file left in intake",
			slog.String("file", fi.Name),
			slog.String("part_number", result.PartNumber.Value))
		return outcome, entries
	}

	processed := s.now()
	records := make([]domain.MeasurementRecord, len(result.Drafts))
	for i, d := range result.Drafts {
		records[i] = domain.RecordFromDraft(d, processed)
	}

	written, err := s.store.InsertBatch(ctx, records, domain.IngestedFile{
		FileName:   fi.Name,
		Checksum:   checksum,
		IngestedAt: processed,
	})
	if err != nil {
		return fail("persist failed", err)
	}
	outcome.Records = written
	outcome.Outcome = OutcomeIngested

	if err := s.mover.MoveFile(fi.Path, filepath.Join(s.successDir, fi.Name)); err != nil {
		outcome.Reason = "move to success failed"
		logErr(fmt.Sprintf("%s: %v", outcome.Reason, err))
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to move ingested file",
			slog.String("file", fi.Name),
			slog.String("error", err.Error()))
		return outcome, entries
	}
	outcome.Moved = true

	s.logger.InfoContext(ctx, "File ingested",
		slog.String("file", fi.Name),
		slog.String("part_number", result.PartNumber.Value),
		slog.String("part_number_source", string(result.PartNumber.Source)),
		slog.Int("records", written))
	return outcome, entries
}

func (s *Service) appendErrors(ctx context.Context, entries []exporter.ErrorLogEntry) {
	if err := s.errorLog.Append(entries...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write error log",
			slog.String("path", s.errorLog.Path()),
			slog.Int("entries", len(entries)),
			slog.String("error", err.Error()))
	}
}

func (s *Service) publish(ctx context.Context, t events.MessageType, data interface{}) {
	if s.progress == nil {
		return
	}
	s.progress.Publish(events.New(t, data, infrastructure.GetTraceID(ctx)))
}
