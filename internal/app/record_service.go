package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/gendbuntu/internal/core/document"
	"github.com/example/gendbuntu/internal/core/numbering"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ctxutil"
	"github.com/example/gendbuntu/internal/ports/primary"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// RecordServiceDeps groups the collaborators of the record service.
type RecordServiceDeps struct {
	Records   secondary.RecordRepository
	Allocator secondary.SequenceAllocator
	Tx        secondary.Transactor
	Audit     secondary.AuditWriter
	AuditLog  secondary.AuditRepository
	Failures  secondary.SideEffectLog
	Renderer  secondary.DocumentRenderer
	Linker    *Linker

	// Executor runs follow-ups synchronously; RetrySideEffects always uses it.
	Executor EffectExecutor
	// FollowUps runs the follow-ups of a create. Defaults to Executor.
	FollowUps EffectExecutor

	Logger      *slog.Logger
	MaxAttempts int
}

// RecordServiceImpl implements the RecordService interface.
type RecordServiceImpl struct {
	records     secondary.RecordRepository
	alloc       secondary.SequenceAllocator
	tx          secondary.Transactor
	audit       secondary.AuditWriter
	auditLog    secondary.AuditRepository
	failures    secondary.SideEffectLog
	renderer    secondary.DocumentRenderer
	linker      *Linker
	executor    EffectExecutor
	followUps   EffectExecutor
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

// NewRecordService creates a new RecordService implementation.
func NewRecordService(deps RecordServiceDeps) *RecordServiceImpl {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	followUps := deps.FollowUps
	if followUps == nil {
		followUps = deps.Executor
	}
	maxAttempts := deps.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RecordServiceImpl{
		records:     deps.Records,
		alloc:       deps.Allocator,
		tx:          deps.Tx,
		audit:       deps.Audit,
		auditLog:    deps.AuditLog,
		failures:    deps.Failures,
		renderer:    deps.Renderer,
		linker:      deps.Linker,
		executor:    deps.Executor,
		followUps:   followUps,
		logger:      logger.With("component", "records"),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// CreateRecord validates, numbers and persists a record, then runs its follow-ups.
func (s *RecordServiceImpl) CreateRecord(ctx context.Context, req primary.CreateRecordRequest) (*primary.Record, error) {
	ctx, actor := ctxutil.ResolveActor(ctx, req.Actor)

	// 1. Guard
	if result := record.CanCreate(req.Kind, req.Fields); !result.Allowed {
		return nil, result.Error()
	}
	fields := record.ApplyDefaults(req.Kind, req.Fields)
	prefix, err := numbering.Prefix(req.Kind, fields)
	if err != nil {
		return nil, err
	}
	spec := record.MustLookup(req.Kind)

	status := fields[record.FieldStatus]
	delete(fields, record.FieldStatus)
	rec := &secondary.RecordRecord{
		Kind:      req.Kind,
		Status:    status,
		CreatedBy: actor,
		Fields:    fields,
	}

	// 2. Allocate and insert in one transaction, retrying identifier races
	err = retryIdentifierConflicts(ctx, s.logger, req.Kind, s.maxAttempts, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			identifier, err := s.alloc.Allocate(ctx, req.Kind, prefix, s.now().Year())
			if err != nil {
				return err
			}
			rec.ID = s.newID()
			rec.Identifier = identifier
			if err := s.records.Create(ctx, rec); err != nil {
				return err
			}
			if spec.LinkOnCreate && fields[spec.LinkField] != "" {
				return s.records.SetLink(ctx, record.KindRegistryPV, fields[spec.LinkField], rec.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", req.Kind, err)
	}

	s.logger.Info("record created",
		"kind", rec.Kind,
		"record_id", rec.ID,
		"identifier", rec.Identifier,
		"actor", actor)
	if err := s.audit.LogCreate(ctx, rec.Kind, rec.ID, rec.Identifier); err != nil {
		s.logger.Warn("failed to write audit entry", "action", "create", "record_id", rec.ID, "error", err)
	}

	// 3. Follow-ups never fail the create
	if effs := record.PlanCreateFollowUps(rec.Kind, rec.ID); len(effs) > 0 {
		_ = s.followUps.Execute(ctx, effs)
	}

	return s.GetRecord(ctx, rec.Kind, rec.ID)
}

// GetRecord retrieves a record by ID.
func (s *RecordServiceImpl) GetRecord(ctx context.Context, kind record.Kind, id string) (*primary.Record, error) {
	rec, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return s.recordToPrimary(rec), nil
}

// FindByIdentifier retrieves a record by its human-readable identifier.
func (s *RecordServiceImpl) FindByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*primary.Record, error) {
	rec, err := s.records.GetByIdentifier(ctx, kind, strings.ToUpper(strings.TrimSpace(identifier)))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", kind, err)
	}
	return s.recordToPrimary(rec), nil
}

// ListRecords lists records of a kind with optional filters.
func (s *RecordServiceImpl) ListRecords(ctx context.Context, kind record.Kind, filters primary.RecordFilters) ([]*primary.Record, error) {
	recs, err := s.records.List(ctx, kind, secondary.RecordFilters{
		Status:    filters.Status,
		CreatedBy: filters.CreatedBy,
		Since:     filters.Since,
		Until:     filters.Until,
		Fields:    filters.Fields,
		Limit:     filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	out := make([]*primary.Record, len(recs))
	for i, rec := range recs {
		out[i] = s.recordToPrimary(rec)
	}
	return out, nil
}

// UpdateRecord applies a partial update. Empty values keep the stored value.
func (s *RecordServiceImpl) UpdateRecord(ctx context.Context, req primary.UpdateRecordRequest) (*primary.Record, error) {
	if result := record.CanUpdate(req.Kind, req.Fields); !result.Allowed {
		return nil, result.Error()
	}
	current, err := s.records.GetByID(ctx, req.Kind, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", req.Kind, err)
	}

	patch := normalizePatch(req.Kind, req.Fields)
	if next, ok := patch[record.FieldStatus]; ok {
		transition, result := record.ApplyStatusTransition(req.Kind, current.Status, next)
		if !result.Allowed {
			return nil, result.Error()
		}
		if transition.LeavesTerminal {
			s.logger.Warn("record leaves terminal status",
				"kind", req.Kind,
				"record_id", req.ID,
				"from", current.Status,
				"to", transition.NewStatus)
		}
	}

	if err := s.records.Update(ctx, req.Kind, req.ID, patch); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", req.Kind, err)
	}

	for _, name := range sortedKeys(patch) {
		old := current.Fields[name]
		if name == record.FieldStatus {
			old = current.Status
		}
		if old == patch[name] {
			continue
		}
		if err := s.audit.LogUpdate(ctx, req.Kind, req.ID, name, old, patch[name]); err != nil {
			s.logger.Warn("failed to write audit entry", "action", "update", "record_id", req.ID, "error", err)
		}
	}

	return s.GetRecord(ctx, req.Kind, req.ID)
}

// DeleteRecord deletes a record. Deleting a registry PV also deletes its legal PV.
func (s *RecordServiceImpl) DeleteRecord(ctx context.Context, kind record.Kind, id string) error {
	current, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	if kind == record.KindRegistryPV {
		err = s.linker.UnlinkAndDelete(ctx, id)
	} else {
		err = s.records.Delete(ctx, kind, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	s.logger.Info("record deleted", "kind", kind, "record_id", id, "identifier", current.Identifier)
	if err := s.audit.LogDelete(ctx, kind, id, current.Identifier); err != nil {
		s.logger.Warn("failed to write audit entry", "action", "delete", "record_id", id, "error", err)
	}
	return nil
}

// RenderOnDemand renders a record without persisting anything.
func (s *RecordServiceImpl) RenderOnDemand(ctx context.Context, kind record.Kind, id string) (*primary.RenderedDocument, error) {
	rec, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", kind, err)
	}
	doc, err := document.Build(sourceOf(rec))
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", kind, err)
	}
	return &primary.RenderedDocument{
		FileName:    document.DownloadName(kind, rec.Identifier),
		ContentType: document.ContentType,
		Data:        data,
	}, nil
}

// DocumentPath returns the persisted document of a record.
func (s *RecordServiceImpl) DocumentPath(ctx context.Context, kind record.Kind, id string) (string, error) {
	rec, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		return "", fmt.Errorf("failed to get document: %w", err)
	}
	if rec.DocumentPath == "" {
		return "", fmt.Errorf("%w: no document for %s %s", record.ErrNotFound, kind, rec.Identifier)
	}
	return rec.DocumentPath, nil
}

// RetrySideEffects re-runs the follow-ups a record is still missing.
// They run inline so the returned record reflects their outcome.
func (s *RecordServiceImpl) RetrySideEffects(ctx context.Context, kind record.Kind, id string) (*primary.Record, error) {
	rec, err := s.records.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retry side effects: %w", err)
	}
	if effs := record.PlanFollowUps(followUpState(rec)); len(effs) > 0 {
		if err := s.executor.Execute(ctx, effs); err != nil {
			s.logger.Info("side effects still pending", "kind", kind, "record_id", id, "error", err)
		}
	}
	return s.GetRecord(ctx, kind, id)
}

// LinkRegistry creates and links the legal PV of a registry PV left pending.
func (s *RecordServiceImpl) LinkRegistry(ctx context.Context, registryID string) (*primary.Record, error) {
	if _, err := s.linker.LinkNew(ctx, registryID); err != nil {
		return nil, err
	}
	if err := s.failures.Resolve(ctx, record.KindRegistryPV, registryID, "link"); err != nil {
		s.logger.Warn("failed to resolve link failures", "record_id", registryID, "error", err)
	}
	return s.GetRecord(ctx, record.KindRegistryPV, registryID)
}

// ListAudit retrieves the audit trail matching the filters.
func (s *RecordServiceImpl) ListAudit(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	entries, err := s.auditLog.List(ctx, secondary.AuditFilters{
		Kind:     filters.Kind,
		RecordID: filters.RecordID,
		Actor:    filters.Actor,
		Action:   filters.Action,
		Limit:    filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	out := make([]*primary.AuditEntry, len(entries))
	for i, e := range entries {
		out[i] = &primary.AuditEntry{
			ID:        e.ID,
			Kind:      e.Kind,
			RecordID:  e.RecordID,
			Action:    e.Action,
			Actor:     e.Actor,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
	}
	return out, nil
}

// ListSideEffectFailures retrieves recorded follow-up failures.
func (s *RecordServiceImpl) ListSideEffectFailures(ctx context.Context, filters primary.SideEffectFailureFilters) ([]*primary.SideEffectFailure, error) {
	failures, err := s.failures.List(ctx, secondary.SideEffectFilters{
		Kind:       filters.Kind,
		RecordID:   filters.RecordID,
		Effect:     filters.Effect,
		Unresolved: filters.Unresolved,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list side effect failures: %w", err)
	}
	out := make([]*primary.SideEffectFailure, len(failures))
	for i, f := range failures {
		out[i] = &primary.SideEffectFailure{
			ID:         f.ID,
			Kind:       f.Kind,
			RecordID:   f.RecordID,
			Effect:     f.Effect,
			Error:      f.Error,
			CreatedAt:  f.CreatedAt,
			ResolvedAt: f.ResolvedAt,
		}
	}
	return out, nil
}

// Helper methods

func (s *RecordServiceImpl) recordToPrimary(rec *secondary.RecordRecord) *primary.Record {
	spec := record.MustLookup(rec.Kind)
	fields := rec.Fields.Clone()
	linked := ""
	if spec.LinkField != "" {
		linked = fields[spec.LinkField]
		delete(fields, spec.LinkField)
	}

	var pending []string
	for _, eff := range record.PlanFollowUps(followUpState(rec)) {
		pending = append(pending, eff.EffectType())
	}

	return &primary.Record{
		ID:               rec.ID,
		Kind:             rec.Kind,
		Identifier:       rec.Identifier,
		Status:           rec.Status,
		CreatedBy:        rec.CreatedBy,
		Fields:           fields,
		LinkedID:         linked,
		DocumentPath:     rec.DocumentPath,
		NotificationSent: rec.NotificationSent,
		NotifiedAt:       rec.NotifiedAt,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		Pending:          pending,
	}
}

func followUpState(rec *secondary.RecordRecord) record.FollowUpState {
	linked := false
	if spec, ok := record.Lookup(rec.Kind); ok && spec.LinkField != "" {
		linked = rec.Fields[spec.LinkField] != ""
	}
	return record.FollowUpState{
		Kind:             rec.Kind,
		RecordID:         rec.ID,
		Linked:           linked,
		HasDocument:      rec.DocumentPath != "",
		NotificationSent: rec.NotificationSent,
	}
}

// normalizePatch keeps the non-empty fields and lowercases enumerated values.
func normalizePatch(kind record.Kind, fields record.Fields) record.Fields {
	spec := record.MustLookup(kind)
	patch := record.NonEmpty(fields)
	for name, v := range patch {
		if f, ok := spec.Field(name); ok && len(f.Allowed) > 0 {
			patch[name] = strings.ToLower(v)
		}
	}
	return patch
}

func sortedKeys(fields record.Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ensure RecordServiceImpl implements the interface
var _ primary.RecordService = (*RecordServiceImpl)(nil)
