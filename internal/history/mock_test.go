package history

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/AINomadD3v/model-scraper/internal/store"
)

// --- テスト用モック ---

// mockTable はテスト用のstore.Tableモック。
type mockTable struct {
	records []store.Record
	listErr error

	batchCreateErr error
	batchUpdateErr error

	listQueries  []store.ListQuery
	batchCreated [][]store.Fields
	batchUpdated [][]store.UpdateRequest

	// listFunc が設定されている場合はクエリごとの結果を差し替えられる
	listFunc func(q store.ListQuery) ([]store.Record, error)
}

func (m *mockTable) List(_ context.Context, opts ...store.ListOption) ([]store.Record, error) {
	var q store.ListQuery
	for _, opt := range opts {
		opt(&q)
	}
	m.listQueries = append(m.listQueries, q)
	if m.listFunc != nil {
		return m.listFunc(q)
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockTable) Create(_ context.Context, fields store.Fields) (store.Record, error) {
	return store.Record{ID: "recCreated", Fields: fields}, nil
}

func (m *mockTable) Update(_ context.Context, recordID string, fields store.Fields) error {
	return nil
}

func (m *mockTable) BatchCreate(_ context.Context, records []store.Fields) error {
	if m.batchCreateErr != nil {
		return m.batchCreateErr
	}
	m.batchCreated = append(m.batchCreated, records)
	return nil
}

func (m *mockTable) BatchUpdate(_ context.Context, updates []store.UpdateRequest) error {
	if m.batchUpdateErr != nil {
		return m.batchUpdateErr
	}
	m.batchUpdated = append(m.batchUpdated, updates)
	return nil
}

// mockCollector はテスト用のmetrics.MetricsCollectorモック。
type mockCollector struct {
	snapshotCounts map[string]int
}

func newMockCollector() *mockCollector {
	return &mockCollector{snapshotCounts: make(map[string]int)}
}

func (m *mockCollector) RecordAccountSynced(tenant string)         {}
func (m *mockCollector) RecordAccountFailed(tenant string)         {}
func (m *mockCollector) RecordContentUpserted(count int)           {}
func (m *mockCollector) RecordProviderEmpty(endpoint string)       {}
func (m *mockCollector) RecordFetchLatency(duration time.Duration) {}
func (m *mockCollector) RecordRunCompleted(status string)          {}
func (m *mockCollector) RecordSnapshotCreated(kind string, count int) {
	m.snapshotCounts[kind] += count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fixedTime はテスト用の固定時刻。
var fixedTime = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
