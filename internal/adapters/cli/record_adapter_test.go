package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/primary"
)

// mockRecordService implements primary.RecordService for testing
type mockRecordService struct {
	createRecordFn     func(ctx context.Context, req primary.CreateRecordRequest) (*primary.Record, error)
	listRecordsFn      func(ctx context.Context, kind record.Kind, filters primary.RecordFilters) ([]*primary.Record, error)
	updateRecordFn     func(ctx context.Context, req primary.UpdateRecordRequest) (*primary.Record, error)
	deleteRecordFn     func(ctx context.Context, kind record.Kind, id string) error
	retrySideEffectsFn func(ctx context.Context, kind record.Kind, id string) (*primary.Record, error)

	// Track calls for verification
	lastCreateReq    primary.CreateRecordRequest
	lastUpdateReq    primary.UpdateRecordRequest
	lastGetID        string
	lastIdentifier   string
	lastDeleteID     string
	lastFailureQuery primary.SideEffectFailureFilters
}

var _ primary.RecordService = (*mockRecordService)(nil)

func sampleRecord() *primary.Record {
	return &primary.Record{
		ID:         "a1b2",
		Kind:       record.KindOperationalReport,
		Identifier: "CR-2025-000001",
		Status:     "draft",
		CreatedBy:  "agent-1",
		Fields:     record.Fields{"title": "Ronde de nuit", "content": "RAS", "type": "ronde"},
		CreatedAt:  "2025-03-14T09:30:00Z",
	}
}

func (m *mockRecordService) CreateRecord(ctx context.Context, req primary.CreateRecordRequest) (*primary.Record, error) {
	m.lastCreateReq = req
	if m.createRecordFn != nil {
		return m.createRecordFn(ctx, req)
	}
	return sampleRecord(), nil
}

func (m *mockRecordService) GetRecord(ctx context.Context, kind record.Kind, id string) (*primary.Record, error) {
	m.lastGetID = id
	rec := sampleRecord()
	rec.ID = id
	return rec, nil
}

func (m *mockRecordService) FindByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*primary.Record, error) {
	m.lastIdentifier = identifier
	return sampleRecord(), nil
}

func (m *mockRecordService) ListRecords(ctx context.Context, kind record.Kind, filters primary.RecordFilters) ([]*primary.Record, error) {
	if m.listRecordsFn != nil {
		return m.listRecordsFn(ctx, kind, filters)
	}
	return []*primary.Record{}, nil
}

func (m *mockRecordService) UpdateRecord(ctx context.Context, req primary.UpdateRecordRequest) (*primary.Record, error) {
	m.lastUpdateReq = req
	if m.updateRecordFn != nil {
		return m.updateRecordFn(ctx, req)
	}
	rec := sampleRecord()
	rec.Status = req.Fields["status"]
	return rec, nil
}

func (m *mockRecordService) DeleteRecord(ctx context.Context, kind record.Kind, id string) error {
	m.lastDeleteID = id
	if m.deleteRecordFn != nil {
		return m.deleteRecordFn(ctx, kind, id)
	}
	return nil
}

func (m *mockRecordService) RenderOnDemand(ctx context.Context, kind record.Kind, id string) (*primary.RenderedDocument, error) {
	return &primary.RenderedDocument{FileName: "pv-PV-2025-000001.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}, nil
}

func (m *mockRecordService) DocumentPath(ctx context.Context, kind record.Kind, id string) (string, error) {
	return "/docs/CR-CR-2025-000001-1.pdf", nil
}

func (m *mockRecordService) RetrySideEffects(ctx context.Context, kind record.Kind, id string) (*primary.Record, error) {
	if m.retrySideEffectsFn != nil {
		return m.retrySideEffectsFn(ctx, kind, id)
	}
	return sampleRecord(), nil
}

func (m *mockRecordService) LinkRegistry(ctx context.Context, registryID string) (*primary.Record, error) {
	return &primary.Record{ID: registryID, Kind: record.KindRegistryPV, Identifier: "PV-2025-000002", LinkedID: "legal-1"}, nil
}

func (m *mockRecordService) ListAudit(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	return []*primary.AuditEntry{}, nil
}

func (m *mockRecordService) ListSideEffectFailures(ctx context.Context, filters primary.SideEffectFailureFilters) ([]*primary.SideEffectFailure, error) {
	m.lastFailureQuery = filters
	return []*primary.SideEffectFailure{
		{Kind: record.KindOperationalReport, RecordID: "a1b2", Effect: "notify", Error: "webhook answered 500"},
	}, nil
}

// ============================================================================
// Tests
// ============================================================================

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"title=Ronde de nuit", "content=a=b", "empty="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["title"] != "Ronde de nuit" || fields["content"] != "a=b" || fields["empty"] != "" {
		t.Errorf("unexpected fields %v", fields)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := ParseFields([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRecordAdapter_Create_Success(t *testing.T) {
	mock := &mockRecordService{}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	_, err := adapter.Create(context.Background(), record.KindOperationalReport, record.Fields{"title": "t"}, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastCreateReq.Actor != "agent-1" || mock.lastCreateReq.Kind != record.KindOperationalReport {
		t.Errorf("unexpected request %+v", mock.lastCreateReq)
	}
	if !strings.Contains(out.String(), "✓ Created operational_report CR-2025-000001") {
		t.Errorf("expected success message, got: %s", out.String())
	}
}

func TestRecordAdapter_Create_ShowsPending(t *testing.T) {
	mock := &mockRecordService{
		createRecordFn: func(ctx context.Context, req primary.CreateRecordRequest) (*primary.Record, error) {
			rec := sampleRecord()
			rec.Pending = []string{"render", "notify"}
			return rec, nil
		},
	}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	if _, err := adapter.Create(context.Background(), record.KindOperationalReport, record.Fields{}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "render, notify") {
		t.Errorf("expected pending steps, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "gendbuntu record retry operational_report CR-2025-000001") {
		t.Errorf("expected retry hint, got: %s", out.String())
	}
}

func TestRecordAdapter_Create_ServiceError(t *testing.T) {
	mock := &mockRecordService{
		createRecordFn: func(ctx context.Context, req primary.CreateRecordRequest) (*primary.Record, error) {
			return nil, &record.ValidationError{Fields: []string{"title"}, Reason: "missing required fields"}
		},
	}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	_, err := adapter.Create(context.Background(), record.KindOperationalReport, record.Fields{}, "")
	if !record.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got: %s", out.String())
	}
}

func TestRecordAdapter_List_WithResults(t *testing.T) {
	mock := &mockRecordService{
		listRecordsFn: func(ctx context.Context, kind record.Kind, filters primary.RecordFilters) ([]*primary.Record, error) {
			return []*primary.Record{sampleRecord()}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	recs, err := adapter.List(context.Background(), record.KindOperationalReport, primary.RecordFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
	if !strings.Contains(out.String(), "CR-2025-000001") || !strings.Contains(out.String(), "Ronde de nuit") {
		t.Errorf("expected record row, got: %s", out.String())
	}
}

func TestRecordAdapter_List_Empty(t *testing.T) {
	var out bytes.Buffer
	adapter := NewRecordAdapter(&mockRecordService{}, &out)

	if _, err := adapter.List(context.Background(), record.KindIntervention, primary.RecordFilters{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No intervention records found.") {
		t.Errorf("expected empty message, got: %s", out.String())
	}
}

func TestRecordAdapter_ResolvesIdentifierOrID(t *testing.T) {
	mock := &mockRecordService{}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	if _, err := adapter.Show(context.Background(), record.KindOperationalReport, "cr-2025-000001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastIdentifier != "cr-2025-000001" {
		t.Errorf("expected lookup by identifier, got %q", mock.lastIdentifier)
	}

	if _, err := adapter.Show(context.Background(), record.KindOperationalReport, "5f0c7a52-1e7b-4f0e-9a55-2a9c3c1d8e11"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastGetID != "5f0c7a52-1e7b-4f0e-9a55-2a9c3c1d8e11" {
		t.Errorf("expected lookup by ID, got %q", mock.lastGetID)
	}
}

func TestRecordAdapter_Update(t *testing.T) {
	mock := &mockRecordService{}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	err := adapter.Update(context.Background(), record.KindOperationalReport, "CR-2025-000001", record.Fields{"status": "validated"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastUpdateReq.ID != "a1b2" {
		t.Errorf("expected update by resolved ID, got %q", mock.lastUpdateReq.ID)
	}
	if !strings.Contains(out.String(), "status: validated") {
		t.Errorf("expected status in output, got: %s", out.String())
	}
}

func TestRecordAdapter_Delete_NotFound(t *testing.T) {
	mock := &mockRecordService{
		deleteRecordFn: func(ctx context.Context, kind record.Kind, id string) error {
			return record.NotFoundError(kind, id)
		},
	}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	err := adapter.Delete(context.Background(), record.KindIntervention, "int-1")
	if !errors.Is(err, record.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAdapter_Render_WritesFile(t *testing.T) {
	var out bytes.Buffer
	adapter := NewRecordAdapter(&mockRecordService{}, &out)
	dir := t.TempDir()

	path, err := adapter.Render(context.Background(), record.KindLegalPV, "legal-1", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "pv-PV-2025-000001.pdf") {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestRecordAdapter_Retry_Complete(t *testing.T) {
	var out bytes.Buffer
	adapter := NewRecordAdapter(&mockRecordService{}, &out)

	if _, err := adapter.Retry(context.Background(), record.KindOperationalReport, "a1b2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "is complete") {
		t.Errorf("expected completion message, got: %s", out.String())
	}
}

func TestRecordAdapter_Link(t *testing.T) {
	var out bytes.Buffer
	adapter := NewRecordAdapter(&mockRecordService{}, &out)

	rec, err := adapter.Link(context.Background(), "reg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.LinkedID != "legal-1" {
		t.Errorf("expected legal-1, got %s", rec.LinkedID)
	}
	if !strings.Contains(out.String(), "linked to legal PV legal-1") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRecordAdapter_Failures(t *testing.T) {
	mock := &mockRecordService{}
	var out bytes.Buffer
	adapter := NewRecordAdapter(mock, &out)

	failures, err := adapter.Failures(context.Background(), primary.SideEffectFailureFilters{Unresolved: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failures) != 1 || !mock.lastFailureQuery.Unresolved {
		t.Errorf("unexpected failures %v / query %+v", failures, mock.lastFailureQuery)
	}
	if !strings.Contains(out.String(), "webhook answered 500") {
		t.Errorf("expected failure row, got: %s", out.String())
	}
}
