package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// Linker keeps registry PVs and legal PVs cross-referenced.
// A registry PV owns at most one legal PV and the legal PV points back at it.
type Linker struct {
	records     secondary.RecordRepository
	alloc       secondary.SequenceAllocator
	tx          secondary.Transactor
	failures    secondary.SideEffectLog
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// NewLinker creates a new Linker.
func NewLinker(
	records secondary.RecordRepository,
	alloc secondary.SequenceAllocator,
	tx secondary.Transactor,
	failures secondary.SideEffectLog,
	logger *slog.Logger,
	maxAttempts int,
) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		records:     records,
		alloc:       alloc,
		tx:          tx,
		failures:    failures,
		logger:      logger.With("component", "linker"),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LinkNew derives the legal PV of a registry PV and links both records.
// Both writes share one transaction. A registry that is already linked
// returns its existing legal PV.
func (l *Linker) LinkNew(ctx context.Context, registryID string) (string, error) {
	var legalID string
	err := retryIdentifierConflicts(ctx, l.logger, record.KindLegalPV, l.maxAttempts, func(ctx context.Context) error {
		return l.tx.WithinTx(ctx, func(ctx context.Context) error {
			id, err := l.linkNew(ctx, registryID)
			if err != nil {
				return err
			}
			legalID = id
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to link registry PV %s: %w", registryID, err)
	}
	return legalID, nil
}

func (l *Linker) linkNew(ctx context.Context, registryID string) (string, error) {
	registry, err := l.records.GetByID(ctx, record.KindRegistryPV, registryID)
	if err != nil {
		return "", err
	}
	if linked := registry.Fields["linked_legal_id"]; linked != "" {
		return linked, nil
	}

	// A legal PV may already point at the registry without the back-reference.
	existing, err := l.records.List(ctx, record.KindLegalPV, secondary.RecordFilters{
		Fields: record.Fields{"linked_registry_id": registryID},
		Limit:  1,
	})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		if err := l.records.SetLink(ctx, record.KindRegistryPV, registryID, existing[0].ID); err != nil {
			return "", err
		}
		return existing[0].ID, nil
	}

	now := l.now()
	identifier, err := l.alloc.Allocate(ctx, record.KindLegalPV, "PV", now.Year())
	if err != nil {
		return "", err
	}

	title := "PV Registre " + registry.Identifier
	description := registry.Fields["description"]
	if description == "" {
		description = title
	}
	legal := &secondary.RecordRecord{
		ID:         uuid.NewString(),
		Kind:       record.KindLegalPV,
		Identifier: identifier,
		CreatedBy:  registry.CreatedBy,
		Fields: record.Fields{
			"type":               "pv",
			"title":              title,
			"description":        description,
			"incident_date":      now.Format(time.RFC3339),
			"linked_registry_id": registryID,
		},
	}
	if err := l.records.Create(ctx, legal); err != nil {
		return "", err
	}
	if err := l.records.SetLink(ctx, record.KindRegistryPV, registryID, legal.ID); err != nil {
		return "", err
	}

	l.logger.Info("legal PV linked",
		"registry_id", registryID,
		"legal_id", legal.ID,
		"identifier", identifier)
	return legal.ID, nil
}

// UnlinkAndDelete deletes a registry PV and then its legal PV.
// Only the registry deletion can fail the call; a legal PV that cannot be
// removed is logged and recorded as an unlink failure.
func (l *Linker) UnlinkAndDelete(ctx context.Context, registryID string) error {
	registry, err := l.records.GetByID(ctx, record.KindRegistryPV, registryID)
	if err != nil {
		return err
	}
	legalID := registry.Fields["linked_legal_id"]
	if legalID == "" {
		legalID = l.findLegalFor(ctx, registryID)
	}

	if err := l.records.Delete(ctx, record.KindRegistryPV, registryID); err != nil {
		return fmt.Errorf("failed to delete registry PV: %w", err)
	}
	if legalID == "" {
		return nil
	}

	err = l.records.Delete(ctx, record.KindLegalPV, legalID)
	if err == nil || errors.Is(err, record.ErrNotFound) {
		return nil
	}

	failure := &record.SideEffectFailure{Effect: "unlink", Kind: record.KindRegistryPV, RecordID: registryID, Err: err}
	l.logger.Warn("side effect failed",
		"kind", failure.Kind,
		"record_id", failure.RecordID,
		"effect", failure.Effect,
		"legal_id", legalID,
		"error", err)
	if recErr := l.failures.Record(ctx, &secondary.SideEffectFailureRecord{
		Kind:     failure.Kind,
		RecordID: failure.RecordID,
		Effect:   failure.Effect,
		Error:    failure.Error(),
	}); recErr != nil {
		l.logger.Error("failed to record side effect failure", "error", recErr)
	}
	return nil
}

func (l *Linker) findLegalFor(ctx context.Context, registryID string) string {
	legal, err := l.records.List(ctx, record.KindLegalPV, secondary.RecordFilters{
		Fields: record.Fields{"linked_registry_id": registryID},
		Limit:  1,
	})
	if err != nil || len(legal) == 0 {
		return ""
	}
	return legal[0].ID
}
