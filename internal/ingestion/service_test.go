package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"micromes/internal/config"
	"micromes/internal/extraction"
	"micromes/internal/storage"
	"micromes/pkg/contracts/domain"
	"micromes/pkg/contracts/events"
)

const testRegistry = `
part_number_cell: [2, 1]
header_rows: 1
parameters:
  Gap: [1, 2, 3, 0, 1, "11111-2222-333"]
  Height: [1, 3, 3, ~, ~, "11111-2222-333"]
`

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	paths   *config.Paths
	store   *storage.Store
	service *Service
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestPaths(t *testing.T) *config.Paths {
	t.Helper()
	intake := filepath.Join(t.TempDir(), "intake")
	require.NoError(t, os.MkdirAll(intake, 0755))
	return &config.Paths{
		IntakeDir:  intake,
		SuccessDir: filepath.Join(intake, config.SuccessDirName),
		ErrorLog:   filepath.Join(intake, config.ErrorLogName),
	}
}

func newExtractor(t *testing.T) *extraction.Extractor {
	t.Helper()
	reg, err := config.ParseRegistry([]byte(testRegistry))
	require.NoError(t, err)
	return extraction.NewExtractor(reg, quietLogger())
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	paths := newTestPaths(t)

	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "database.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(paths, newExtractor(t), store, quietLogger())
	svc.SetClock(func() time.Time { return fixedNow })
	return &fixture{paths: paths, store: store, service: svc}
}

// writeWorkbook saves rows into the intake directory with a given age so
// discovery order is deterministic
func writeWorkbook(t *testing.T, dir, name string, age time.Duration, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func workbookRows(pn interface{}) [][]interface{} {
	return [][]interface{}{
		{"SN", "Gap", "Height"},
		{"lot"},
		{pn},
		{"S1", 0.5, 10},
		{"S2", "abc", 11},
		{"S3", 0.7, 12},
	}
}

func readErrorLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunIngestsAndMoves(t *testing.T) {
	fx := newFixture(t)
	writeWorkbook(t, fx.paths.IntakeDir, "a.xlsx", 2*time.Hour, workbookRows("11111-2222-333"))
	writeWorkbook(t, fx.paths.IntakeDir, "b.xlsx", time.Hour, workbookRows("55555-5555-555"))
	require.NoError(t, os.WriteFile(filepath.Join(fx.paths.IntakeDir, "notes.txt"), []byte("x"), 0644))

	report, err := fx.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesScanned)
	assert.Equal(t, 1, report.FilesMoved)
	assert.Equal(t, 5, report.RecordsWritten)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, []UnmovedFile{{Name: "b.xlsx", Reason: "no measurements extracted"}}, report.Unmoved)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Files, 2)
	assert.Equal(t, FileOutcome{
		Name:       "a.xlsx",
		PartNumber: "11111-2222-333",
		Source:     string(domain.PartNumberFromCell),
		Outcome:    OutcomeIngested,
		Records:    5,
		Issues:     1,
		Checksum:   report.Files[0].Checksum,
		Moved:      true,
	}, report.Files[0])
	assert.Len(t, report.Files[0].Checksum, 16)
	assert.Equal(t, OutcomeSkipped, report.Files[1].Outcome)

	assert.FileExists(t, filepath.Join(fx.paths.SuccessDir, "a.xlsx"))
	assert.NoFileExists(t, filepath.Join(fx.paths.IntakeDir, "a.xlsx"))
	assert.FileExists(t, filepath.Join(fx.paths.IntakeDir, "b.xlsx"))

	records, err := fx.store.Slice(context.Background(), "11111-2222-333", "Gap", domain.Month{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), records[0].MeasuredDate)

	log := readErrorLog(t, fx.paths.ErrorLog)
	require.Len(t, log, 2)
	assert.Equal(t, []string{"Timestamp", "Filename", "Error"}, log[0])
	assert.Equal(t, "2024-03-15 09:30:00", log[1][0])
	assert.Equal(t, "a.xlsx", log[1][1])
	assert.Contains(t, log[1][2], "row 5 (Gap)")
}

func TestRunEmptyIntake(t *testing.T) {
	fx := newFixture(t)

	report, err := fx.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesScanned)
	assert.Empty(t, report.Files)
	assert.DirExists(t, fx.paths.SuccessDir)
	assert.NoFileExists(t, fx.paths.ErrorLog)
}

func TestRunMissingIntake(t *testing.T) {
	paths := newTestPaths(t)
	paths.IntakeDir = filepath.Join(t.TempDir(), "missing")
	paths.SuccessDir = filepath.Join(t.TempDir(), "success")

	svc := NewService(paths, newExtractor(t), &mockStore{}, quietLogger())
	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}

func TestRunCorruptWorkbookDoesNotStopBatch(t *testing.T) {
	fx := newFixture(t)
	bad := filepath.Join(fx.paths.IntakeDir, "broken.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a workbook"), 0644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(bad, old, old))
	writeWorkbook(t, fx.paths.IntakeDir, "good.xlsx", time.Hour, workbookRows("11111-2222-333"))

	report, err := fx.service.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, OutcomeFailed, report.Files[0].Outcome)
	assert.Equal(t, "extraction failed", report.Files[0].Reason)
	assert.Equal(t, OutcomeIngested, report.Files[1].Outcome)
	assert.Equal(t, 1, report.FilesMoved)
	assert.FileExists(t, bad)

	log := readErrorLog(t, fx.paths.ErrorLog)
	require.Len(t, log, 3)
	assert.Equal(t, "broken.xlsx", log[1][1])
	assert.Contains(t, log[1][2], "extraction failed")
}

func TestRunFlagsPreviouslyIngestedContent(t *testing.T) {
	fx := newFixture(t)
	src := writeWorkbook(t, fx.paths.IntakeDir, "first.xlsx", time.Hour, workbookRows("11111-2222-333"))
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	_, err = fx.service.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(fx.paths.IntakeDir, "again.xlsx"), data, 0644))
	report, err := fx.service.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Duplicate)
	assert.True(t, report.Files[0].Moved)
	assert.Equal(t, 5, report.RecordsWritten)

	log := readErrorLog(t, fx.paths.ErrorLog)
	require.Len(t, log, 4)
	assert.Equal(t, "again.xlsx", log[2][1])
	assert.Contains(t, log[2][2], "identical content already ingested as first.xlsx")
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertBatch(ctx context.Context, records []domain.MeasurementRecord, file domain.IngestedFile) (int, error) {
	args := m.Called(ctx, records, file)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) FindIngestedFile(ctx context.Context, checksum string) (*domain.IngestedFile, error) {
	args := m.Called(ctx, checksum)
	f, _ := args.Get(0).(*domain.IngestedFile)
	return f, args.Error(1)
}

func TestRunPersistFailureLeavesFile(t *testing.T) {
	paths := newTestPaths(t)
	store := &mockStore{}
	store.On("FindIngestedFile", mock.Anything, mock.Anything).Return(nil, errors.New("lookup unavailable"))
	store.On("InsertBatch", mock.Anything, mock.Anything, mock.MatchedBy(func(f domain.IngestedFile) bool {
		return f.FileName == "a.xlsx" && f.Checksum != "" && f.IngestedAt.Equal(fixedNow)
	})).Return(0, errors.New("database is locked"))

	svc := NewService(paths, newExtractor(t), store, quietLogger())
	svc.SetClock(func() time.Time { return fixedNow })
	writeWorkbook(t, paths.IntakeDir, "a.xlsx", time.Hour, workbookRows("11111-2222-333"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)

	require.Len(t, report.Files, 1)
	assert.Equal(t, OutcomeFailed, report.Files[0].Outcome)
	assert.Equal(t, 0, report.RecordsWritten)
	assert.Equal(t, []UnmovedFile{{Name: "a.xlsx", Reason: "persist failed"}}, report.Unmoved)
	assert.FileExists(t, filepath.Join(paths.IntakeDir, "a.xlsx"))

	log := readErrorLog(t, paths.ErrorLog)
	require.Len(t, log, 3)
	assert.Contains(t, log[2][2], "database is locked")
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []events.Message
}

func (p *recordingPublisher) Publish(msg events.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func TestRunPublishesProgress(t *testing.T) {
	fx := newFixture(t)
	pub := &recordingPublisher{}
	fx.service.SetProgress(pub)
	writeWorkbook(t, fx.paths.IntakeDir, "a.xlsx", time.Hour, workbookRows("11111-2222-333"))

	report, err := fx.service.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.messages, 3)
	assert.Equal(t, events.TypeIngestionStarted, pub.messages[0].Type)
	assert.Equal(t, events.IngestionStarted{RunID: report.RunID, Files: 1}, pub.messages[0].Data)
	assert.Equal(t, events.TypeIngestionFile, pub.messages[1].Type)
	progress, ok := pub.messages[1].Data.(events.FileProgress)
	require.True(t, ok)
	assert.Equal(t, "a.xlsx", progress.File)
	assert.Equal(t, 5, progress.Records)
	assert.Equal(t, events.TypeIngestionComplete, pub.messages[2].Type)
	assert.NotEmpty(t, pub.messages[2].TraceID)
}

func TestRunRecordsIssueSpanEvents(t *testing.T) {
	fx := newFixture(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	fx.service.SetTelemetry(tp.Tracer("ingestion-test"), nil)

	writeWorkbook(t, fx.paths.IntakeDir, "a.xlsx", time.Hour, workbookRows("11111-2222-333"))
	_, err := fx.service.Run(context.Background())
	require.NoError(t, err)

	var issueEvents []sdktrace.Event
	for _, span := range recorder.Ended() {
		if span.Name() == "ingestion.file" {
			issueEvents = append(issueEvents, span.Events()...)
		}
	}
	require.Len(t, issueEvents, 1)
	assert.Equal(t, "extraction.issue", issueEvents[0].Name)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range issueEvents[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, string(extraction.IssueParse), attrs["issue.kind"].AsString())
	assert.Equal(t, "Gap", attrs["issue.parameter"].AsString())
	assert.Equal(t, int64(5), attrs["issue.row"].AsInt64())
}

func TestRunTwiceProcessesNothingNew(t *testing.T) {
	fx := newFixture(t)
	writeWorkbook(t, fx.paths.IntakeDir, "a.xlsx", time.Hour, workbookRows("11111-2222-333"))

	first, err := fx.service.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.FilesMoved)
	require.Positive(t, first.RecordsWritten)

	second, err := fx.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesScanned)
	assert.Equal(t, 0, second.FilesMoved)
	assert.Equal(t, 0, second.RecordsWritten)
	assert.Empty(t, second.Unmoved)

	count, err := fx.store.CountByPartNumber(context.Background(), "11111-2222-333")
	require.NoError(t, err)
	assert.Equal(t, first.RecordsWritten, count)
}

func TestRunCancelledContext(t *testing.T) {
	fx := newFixture(t)
	writeWorkbook(t, fx.paths.IntakeDir, "a.xlsx", time.Hour, workbookRows("11111-2222-333"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := fx.service.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesScanned)
	assert.Empty(t, report.Files)
	assert.Equal(t, 0, report.FilesMoved)
	assert.Equal(t, []UnmovedFile{{Name: "a.xlsx", Reason: ReasonCancelled}}, report.Unmoved)
	assert.FileExists(t, filepath.Join(fx.paths.IntakeDir, "a.xlsx"))
}

func TestFileChecksum(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0644))

	sumA, err := fileChecksum(a)
	require.NoError(t, err)
	sumB, err := fileChecksum(b)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)

	_, err = fileChecksum(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
