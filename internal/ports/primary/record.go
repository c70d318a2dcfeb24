// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI drives the application.
package primary

import (
	"context"

	"github.com/example/gendbuntu/internal/core/record"
)

// RecordService defines the primary port for numbered record operations.
type RecordService interface {
	// CreateRecord validates, numbers and persists a record, then runs its follow-ups.
	// Follow-up failures never fail the call; they show up as Pending steps.
	CreateRecord(ctx context.Context, req CreateRecordRequest) (*Record, error)

	// GetRecord retrieves a record by ID.
	GetRecord(ctx context.Context, kind record.Kind, id string) (*Record, error)

	// FindByIdentifier retrieves a record by its human-readable identifier.
	FindByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*Record, error)

	// ListRecords lists records of a kind with optional filters.
	ListRecords(ctx context.Context, kind record.Kind, filters RecordFilters) ([]*Record, error)

	// UpdateRecord applies a partial update. Empty values keep the stored value.
	UpdateRecord(ctx context.Context, req UpdateRecordRequest) (*Record, error)

	// DeleteRecord deletes a record. Deleting a registry PV also deletes its legal PV.
	DeleteRecord(ctx context.Context, kind record.Kind, id string) error

	// RenderOnDemand renders a record without persisting anything.
	RenderOnDemand(ctx context.Context, kind record.Kind, id string) (*RenderedDocument, error)

	// DocumentPath returns the persisted document of a record.
	DocumentPath(ctx context.Context, kind record.Kind, id string) (string, error)

	// RetrySideEffects re-runs the follow-ups a record is still missing.
	RetrySideEffects(ctx context.Context, kind record.Kind, id string) (*Record, error)

	// LinkRegistry creates and links the legal PV of a registry PV left pending.
	LinkRegistry(ctx context.Context, registryID string) (*Record, error)

	// ListAudit retrieves the audit trail matching the filters.
	ListAudit(ctx context.Context, filters AuditFilters) ([]*AuditEntry, error)

	// ListSideEffectFailures retrieves recorded follow-up failures.
	ListSideEffectFailures(ctx context.Context, filters SideEffectFailureFilters) ([]*SideEffectFailure, error)
}

// CreateRecordRequest contains parameters for creating a record.
type CreateRecordRequest struct {
	Kind   record.Kind
	Fields record.Fields
	Actor  string // falls back to the actor carried by the context
}

// UpdateRecordRequest contains parameters for updating a record.
type UpdateRecordRequest struct {
	Kind   record.Kind
	ID     string
	Fields record.Fields
}

// Record represents a record at the port boundary.
type Record struct {
	ID               string
	Kind             record.Kind
	Identifier       string
	Status           string
	CreatedBy        string
	Fields           record.Fields
	LinkedID         string
	DocumentPath     string
	NotificationSent bool
	NotifiedAt       string
	CreatedAt        string
	UpdatedAt        string
	// Pending lists the follow-up steps not completed yet ('link', 'render', 'notify').
	Pending []string
}

// RecordFilters contains filter options for listing records.
type RecordFilters struct {
	Status    string
	CreatedBy string
	Since     string
	Until     string
	Fields    record.Fields
	Limit     int
}

// RenderedDocument is an on-demand rendering.
type RenderedDocument struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SideEffectFailure represents a recorded follow-up failure at the port boundary.
type SideEffectFailure struct {
	ID         string
	Kind       record.Kind
	RecordID   string
	Effect     string
	Error      string
	CreatedAt  string
	ResolvedAt string
}

// SideEffectFailureFilters contains filter options for querying failures.
type SideEffectFailureFilters struct {
	Kind       record.Kind
	RecordID   string
	Effect     string
	Unresolved bool
	Limit      int
}
