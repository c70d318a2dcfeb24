package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/example/gendbuntu/internal/core/document"
	"github.com/example/gendbuntu/internal/core/numbering"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Ensure mocks implement the interfaces
var (
	_ secondary.RecordRepository  = (*mockRecordRepository)(nil)
	_ secondary.SequenceAllocator = (*mockAllocator)(nil)
	_ secondary.Transactor        = (*mockTransactor)(nil)
	_ secondary.AuditWriter       = (*mockAuditWriter)(nil)
	_ secondary.AuditRepository   = (*mockAuditRepository)(nil)
	_ secondary.SideEffectLog     = (*mockSideEffectLog)(nil)
	_ secondary.DocumentRenderer  = (*mockRenderer)(nil)
	_ secondary.DocumentStore     = (*mockDocumentStore)(nil)
	_ secondary.Notifier          = (*mockNotifier)(nil)
)

// mockRecordRepository keeps records in memory and enforces identifier uniqueness.
type mockRecordRepository struct {
	mu      sync.Mutex
	records map[string]*secondary.RecordRecord // keyed by kind/id

	createErr          error
	deleteErrs         map[string]error // keyed by kind/id
	setDocumentPathErr error
	markNotifiedErr    error
	createCalls        int
}

func newMockRecordRepository() *mockRecordRepository {
	return &mockRecordRepository{
		records:    make(map[string]*secondary.RecordRecord),
		deleteErrs: make(map[string]error),
	}
}

func recordKey(kind record.Kind, id string) string {
	return string(kind) + "/" + id
}

func copyRecord(rec *secondary.RecordRecord) *secondary.RecordRecord {
	c := *rec
	c.Fields = rec.Fields.Clone()
	return &c
}

func (m *mockRecordRepository) Create(ctx context.Context, rec *secondary.RecordRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.records {
		if existing.Kind == rec.Kind && existing.Identifier == rec.Identifier {
			return &record.ConflictError{Reason: "duplicate identifier " + rec.Identifier, Retryable: true}
		}
	}
	if rec.Status == "" {
		rec.Status = record.MustLookup(rec.Kind).InitialStatus()
	}
	rec.CreatedAt = "2025-03-14T09:30:00Z"
	rec.UpdatedAt = rec.CreatedAt
	m.records[recordKey(rec.Kind, rec.ID)] = copyRecord(rec)
	return nil
}

func (m *mockRecordRepository) GetByID(ctx context.Context, kind record.Kind, id string) (*secondary.RecordRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(kind, id)]
	if !ok {
		return nil, record.NotFoundError(kind, id)
	}
	return copyRecord(rec), nil
}

func (m *mockRecordRepository) GetByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*secondary.RecordRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.Kind == kind && rec.Identifier == identifier {
			return copyRecord(rec), nil
		}
	}
	return nil, record.NotFoundError(kind, identifier)
}

func (m *mockRecordRepository) List(ctx context.Context, kind record.Kind, filters secondary.RecordFilters) ([]*secondary.RecordRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.RecordRecord
outer:
	for _, rec := range m.records {
		if rec.Kind != kind {
			continue
		}
		if filters.Status != "" && rec.Status != filters.Status {
			continue
		}
		for k, v := range filters.Fields {
			if rec.Fields[k] != v {
				continue outer
			}
		}
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (m *mockRecordRepository) Update(ctx context.Context, kind record.Kind, id string, patch record.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(kind, id)]
	if !ok {
		return record.NotFoundError(kind, id)
	}
	for k, v := range patch {
		if v == "" {
			continue
		}
		if k == record.FieldStatus {
			rec.Status = v
			continue
		}
		rec.Fields[k] = v
	}
	return nil
}

func (m *mockRecordRepository) Delete(ctx context.Context, kind record.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErrs[recordKey(kind, id)]; err != nil {
		return err
	}
	if _, ok := m.records[recordKey(kind, id)]; !ok {
		return record.NotFoundError(kind, id)
	}
	delete(m.records, recordKey(kind, id))
	return nil
}

func (m *mockRecordRepository) SetLink(ctx context.Context, kind record.Kind, id, linkedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(kind, id)]
	if !ok {
		return record.NotFoundError(kind, id)
	}
	field := record.MustLookup(kind).LinkField
	if current := rec.Fields[field]; current != "" && current != linkedID {
		return &record.ConflictError{Reason: fmt.Sprintf("%s %s is already linked", kind, id)}
	}
	rec.Fields[field] = linkedID
	return nil
}

func (m *mockRecordRepository) SetDocumentPath(ctx context.Context, kind record.Kind, id, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setDocumentPathErr != nil {
		return m.setDocumentPathErr
	}
	rec, ok := m.records[recordKey(kind, id)]
	if !ok {
		return record.NotFoundError(kind, id)
	}
	rec.DocumentPath = path
	return nil
}

func (m *mockRecordRepository) MarkNotified(ctx context.Context, kind record.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markNotifiedErr != nil {
		return m.markNotifiedErr
	}
	rec, ok := m.records[recordKey(kind, id)]
	if !ok {
		return record.NotFoundError(kind, id)
	}
	rec.NotificationSent = true
	rec.NotifiedAt = "2025-03-14T09:31:00Z"
	return nil
}

func (m *mockRecordRepository) count(kind record.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

// mockAllocator hands out sequential identifiers per prefix.
// Queued identifiers are returned first to simulate races.
type mockAllocator struct {
	mu       sync.Mutex
	next     map[string]int
	queued   []string
	err      error
	calls    int
	prefixes []string
}

func newMockAllocator() *mockAllocator {
	return &mockAllocator{next: make(map[string]int)}
}

func (m *mockAllocator) Allocate(ctx context.Context, kind record.Kind, prefix string, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prefixes = append(m.prefixes, prefix)
	if m.err != nil {
		return "", m.err
	}
	if len(m.queued) > 0 {
		id := m.queued[0]
		m.queued = m.queued[1:]
		return id, nil
	}
	m.next[prefix]++
	return numbering.Format(prefix, year, m.next[prefix]), nil
}

// mockTransactor runs fn directly and counts transactions.
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type auditCall struct {
	Action   string
	Kind     record.Kind
	RecordID string
	Field    string
	Old, New string
}

// mockAuditWriter captures audit calls.
type mockAuditWriter struct {
	mu    sync.Mutex
	calls []auditCall
	err   error
}

func (m *mockAuditWriter) LogCreate(ctx context.Context, kind record.Kind, recordID, identifier string) error {
	return m.add(auditCall{Action: "create", Kind: kind, RecordID: recordID})
}

func (m *mockAuditWriter) LogUpdate(ctx context.Context, kind record.Kind, recordID, fieldName, oldValue, newValue string) error {
	return m.add(auditCall{Action: "update", Kind: kind, RecordID: recordID, Field: fieldName, Old: oldValue, New: newValue})
}

func (m *mockAuditWriter) LogDelete(ctx context.Context, kind record.Kind, recordID, identifier string) error {
	return m.add(auditCall{Action: "delete", Kind: kind, RecordID: recordID})
}

func (m *mockAuditWriter) add(c auditCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, c)
	return nil
}

// mockAuditRepository returns canned entries.
type mockAuditRepository struct {
	entries []*secondary.AuditEntryRecord
	filters secondary.AuditFilters
}

func (m *mockAuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEntryRecord, error) {
	m.filters = filters
	return m.entries, nil
}

// mockSideEffectLog keeps failures in memory.
type mockSideEffectLog struct {
	mu       sync.Mutex
	failures []*secondary.SideEffectFailureRecord
	resolved []string
}

func (m *mockSideEffectLog) Record(ctx context.Context, f *secondary.SideEffectFailureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = fmt.Sprintf("sef-%d", len(m.failures)+1)
	m.failures = append(m.failures, f)
	return nil
}

func (m *mockSideEffectLog) Resolve(ctx context.Context, kind record.Kind, recordID, effect string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, effect+":"+recordID)
	return nil
}

func (m *mockSideEffectLog) List(ctx context.Context, filters secondary.SideEffectFilters) ([]*secondary.SideEffectFailureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.SideEffectFailureRecord
	for _, f := range m.failures {
		if filters.RecordID != "" && f.RecordID != filters.RecordID {
			continue
		}
		if filters.Effect != "" && f.Effect != filters.Effect {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *mockSideEffectLog) effects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.failures))
	for i, f := range m.failures {
		out[i] = f.Effect
	}
	return out
}

// mockRenderer returns the document identifier as bytes.
type mockRenderer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockRenderer) Render(ctx context.Context, doc document.Document) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF " + doc.Identifier), nil
}

// mockDocumentStore keeps documents in memory.
type mockDocumentStore struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{files: make(map[string][]byte)}
}

func (m *mockDocumentStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	path := "/docs/" + name
	m.files[path] = data
	return path, nil
}

func (m *mockDocumentStore) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such document")
	}
	return data, nil
}

func (m *mockDocumentStore) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *mockDocumentStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// mockNotifier captures notifications.
type mockNotifier struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []secondary.Notification
}

func (m *mockNotifier) Enabled() bool { return m.enabled }

func (m *mockNotifier) Notify(ctx context.Context, n secondary.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// testEnv wires a record service over mocks.
type testEnv struct {
	records  *mockRecordRepository
	alloc    *mockAllocator
	tx       *mockTransactor
	audit    *mockAuditWriter
	auditLog *mockAuditRepository
	failures *mockSideEffectLog
	renderer *mockRenderer
	store    *mockDocumentStore
	notifier *mockNotifier
	service  *RecordServiceImpl
}

func newTestEnv() *testEnv {
	env := &testEnv{
		records:  newMockRecordRepository(),
		alloc:    newMockAllocator(),
		tx:       &mockTransactor{},
		audit:    &mockAuditWriter{},
		auditLog: &mockAuditRepository{},
		failures: &mockSideEffectLog{},
		renderer: &mockRenderer{},
		store:    newMockDocumentStore(),
		notifier: &mockNotifier{enabled: true},
	}
	logger := discardLogger()
	linker := NewLinker(env.records, env.alloc, env.tx, env.failures, logger, 3)
	executor := NewEffectExecutor(env.records, linker, env.renderer, env.store, env.notifier, env.failures, logger)
	env.service = NewRecordService(RecordServiceDeps{
		Records:     env.records,
		Allocator:   env.alloc,
		Tx:          env.tx,
		Audit:       env.audit,
		AuditLog:    env.auditLog,
		Failures:    env.failures,
		Renderer:    env.renderer,
		Linker:      linker,
		Executor:    executor,
		Logger:      logger,
		MaxAttempts: 3,
	})
	return env
}
