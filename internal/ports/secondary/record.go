// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"

	"github.com/example/gendbuntu/internal/core/document"
	"github.com/example/gendbuntu/internal/core/record"
)

// RecordRepository defines the secondary port for record persistence.
// One implementation serves every kind; the kind selects the table.
type RecordRepository interface {
	// Create persists a new record. A duplicate identifier or link yields a *record.ConflictError.
	Create(ctx context.Context, rec *RecordRecord) error

	// GetByID retrieves a record by its surrogate ID.
	GetByID(ctx context.Context, kind record.Kind, id string) (*RecordRecord, error)

	// GetByIdentifier retrieves a record by its human-readable identifier.
	GetByIdentifier(ctx context.Context, kind record.Kind, identifier string) (*RecordRecord, error)

	// List retrieves records matching the given filters, newest first.
	List(ctx context.Context, kind record.Kind, filters RecordFilters) ([]*RecordRecord, error)

	// Update applies a partial update. Empty values keep the stored value.
	Update(ctx context.Context, kind record.Kind, id string, patch record.Fields) error

	// Delete removes a record.
	Delete(ctx context.Context, kind record.Kind, id string) error

	// SetLink stores the cross-reference of a record when it has none yet.
	// A record already linked elsewhere yields a *record.ConflictError.
	SetLink(ctx context.Context, kind record.Kind, id, linkedID string) error

	// SetDocumentPath stores the path of the rendered document.
	SetDocumentPath(ctx context.Context, kind record.Kind, id, path string) error

	// MarkNotified records a successful notification.
	MarkNotified(ctx context.Context, kind record.Kind, id string) error
}

// RecordRecord represents a record as stored in persistence.
type RecordRecord struct {
	ID               string
	Kind             record.Kind
	Identifier       string
	Status           string
	CreatedBy        string
	Fields           record.Fields // kind-specific columns, link column included
	DocumentPath     string
	NotificationSent bool
	NotifiedAt       string
	CreatedAt        string
	UpdatedAt        string
}

// RecordFilters contains filter options for querying records.
type RecordFilters struct {
	Status    string
	CreatedBy string
	Since     string // RFC3339, inclusive
	Until     string // RFC3339, exclusive
	Fields    record.Fields
	Limit     int
}

// SequenceAllocator hands out the next identifier of a (kind, prefix, year) sequence.
type SequenceAllocator interface {
	Allocate(ctx context.Context, kind record.Kind, prefix string, year int) (string, error)
}

// Transactor runs fn inside a database transaction.
// Repositories called with the ctx passed to fn join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SideEffectLog stores follow-up steps that failed after a record was persisted.
type SideEffectLog interface {
	// Record appends a failure.
	Record(ctx context.Context, failure *SideEffectFailureRecord) error

	// Resolve marks the open failures of an effect as resolved.
	Resolve(ctx context.Context, kind record.Kind, recordID, effect string) error

	// List retrieves failures matching the given filters, newest first.
	List(ctx context.Context, filters SideEffectFilters) ([]*SideEffectFailureRecord, error)
}

// SideEffectFailureRecord represents a stored side-effect failure.
type SideEffectFailureRecord struct {
	ID         string
	Kind       record.Kind
	RecordID   string
	Effect     string // 'link', 'render', 'notify', 'unlink'
	Error      string
	CreatedAt  string
	ResolvedAt string
}

// SideEffectFilters contains filter options for querying side-effect failures.
type SideEffectFilters struct {
	Kind       record.Kind
	RecordID   string
	Effect     string
	Unresolved bool
	Limit      int
}

// DocumentRenderer turns a document layout into PDF bytes.
type DocumentRenderer interface {
	Render(ctx context.Context, doc document.Document) ([]byte, error)
}

// DocumentStore persists rendered documents.
type DocumentStore interface {
	// Save writes data under name and returns the stored path.
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Read returns the content of a stored document.
	Read(ctx context.Context, path string) ([]byte, error)

	// Remove deletes a stored document. A missing file is not an error.
	Remove(ctx context.Context, path string) error
}

// Notifier pushes a rendered document to an external channel.
type Notifier interface {
	// Enabled reports whether a destination is configured.
	Enabled() bool

	// Notify sends the notification. Non-2xx answers are errors.
	Notify(ctx context.Context, n Notification) error
}

// Notification is a document plus its caption.
type Notification struct {
	FileName string
	File     []byte
	Caption  string
}
