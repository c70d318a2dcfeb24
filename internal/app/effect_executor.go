// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/example/gendbuntu/internal/core/document"
	"github.com/example/gendbuntu/internal/core/effects"
	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// errNotificationsDisabled marks a notify effect that sent nothing.
// It is neither a failure nor a success.
var errNotificationsDisabled = errors.New("notifications disabled")

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place follow-up I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// DefaultEffectExecutor runs record follow-ups. Every effect is isolated:
// a failure is logged and stored in the side-effect log, then the next
// effect runs. Execute returns the joined failures for callers that care.
type DefaultEffectExecutor struct {
	records  secondary.RecordRepository
	linker   *Linker
	renderer secondary.DocumentRenderer
	store    secondary.DocumentStore
	notifier secondary.Notifier
	failures secondary.SideEffectLog
	logger   *slog.Logger
	now      func() time.Time
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(
	records secondary.RecordRepository,
	linker *Linker,
	renderer secondary.DocumentRenderer,
	store secondary.DocumentStore,
	notifier secondary.Notifier,
	failures secondary.SideEffectLog,
	logger *slog.Logger,
) *DefaultEffectExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultEffectExecutor{
		records:  records,
		linker:   linker,
		renderer: renderer,
		store:    store,
		notifier: notifier,
		failures: failures,
		logger:   logger.With("component", "effects"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute processes a slice of effects in sequence.
// A notification is skipped when the rendering it depends on failed in the same batch.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	failedRenders := map[string]bool{}
	return e.execute(ctx, effs, failedRenders)
}

func (e *DefaultEffectExecutor) execute(ctx context.Context, effs []effects.Effect, failedRenders map[string]bool) error {
	var errs []error
	for _, eff := range effs {
		if n, ok := eff.(effects.NotifyEffect); ok && failedRenders[n.RecordID] {
			e.logger.Debug("notification skipped, document missing", "record_id", n.RecordID)
			continue
		}
		if c, ok := eff.(effects.CompositeEffect); ok {
			if err := e.execute(ctx, c.Effects, failedRenders); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		err := e.executeOne(ctx, eff)
		if errors.Is(err, errNotificationsDisabled) {
			continue
		}
		if err == nil {
			e.resolve(ctx, eff)
			continue
		}
		if r, ok := eff.(effects.RenderEffect); ok {
			failedRenders[r.RecordID] = true
		}
		errs = append(errs, e.fail(ctx, eff, err))
	}
	return errors.Join(errs...)
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.LinkEffect:
		_, err := e.linker.LinkNew(ctx, typed.RegistryID)
		return err
	case effects.RenderEffect:
		return e.executeRender(ctx, typed)
	case effects.NotifyEffect:
		return e.executeNotify(ctx, typed)
	case effects.NoEffect:
		return nil
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeRender(ctx context.Context, eff effects.RenderEffect) error {
	kind := record.Kind(eff.Kind)
	rec, err := e.records.GetByID(ctx, kind, eff.RecordID)
	if err != nil {
		return err
	}
	doc, err := document.Build(sourceOf(rec))
	if err != nil {
		return err
	}
	data, err := e.renderer.Render(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	spec := record.MustLookup(kind)
	path, err := e.store.Save(ctx, document.FileName(spec.Prefix, rec.Identifier, e.now()), data)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := e.records.SetDocumentPath(ctx, kind, rec.ID, path); err != nil {
		if rmErr := e.store.Remove(ctx, path); rmErr != nil {
			e.logger.Error("failed to remove unreferenced document", "path", path, "error", rmErr)
		}
		return fmt.Errorf("failed to store document path: %w", err)
	}
	e.logger.Info("document rendered", "kind", kind, "record_id", rec.ID, "path", path)
	return nil
}

func (e *DefaultEffectExecutor) executeNotify(ctx context.Context, eff effects.NotifyEffect) error {
	if e.notifier == nil || !e.notifier.Enabled() {
		e.logger.Debug("notifications disabled", "record_id", eff.RecordID)
		return errNotificationsDisabled
	}

	kind := record.Kind(eff.Kind)
	rec, err := e.records.GetByID(ctx, kind, eff.RecordID)
	if err != nil {
		return err
	}
	if rec.DocumentPath == "" {
		return errors.New("no rendered document to send")
	}
	data, err := e.store.Read(ctx, rec.DocumentPath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	err = e.notifier.Notify(ctx, secondary.Notification{
		FileName: filepath.Base(rec.DocumentPath),
		File:     data,
		Caption:  document.Caption(rec.Identifier, rec.Fields["title"]),
	})
	if err != nil {
		return err
	}
	if err := e.records.MarkNotified(ctx, kind, rec.ID); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	e.logger.Info("notification sent", "kind", kind, "record_id", rec.ID)
	return nil
}

// fail logs and stores the failure of an effect and returns it.
func (e *DefaultEffectExecutor) fail(ctx context.Context, eff effects.Effect, err error) error {
	kind, recordID := effectTarget(eff)
	failure := &record.SideEffectFailure{Effect: eff.EffectType(), Kind: kind, RecordID: recordID, Err: err}

	e.logger.Warn("side effect failed",
		"kind", failure.Kind,
		"record_id", failure.RecordID,
		"effect", failure.Effect,
		"error", err)
	if recErr := e.failures.Record(ctx, &secondary.SideEffectFailureRecord{
		Kind:     failure.Kind,
		RecordID: failure.RecordID,
		Effect:   failure.Effect,
		Error:    err.Error(),
	}); recErr != nil {
		e.logger.Error("failed to record side effect failure", "effect", failure.Effect, "error", recErr)
	}
	return failure
}

// resolve closes earlier failures of an effect that just succeeded.
func (e *DefaultEffectExecutor) resolve(ctx context.Context, eff effects.Effect) {
	kind, recordID := effectTarget(eff)
	if recordID == "" {
		return
	}
	if err := e.failures.Resolve(ctx, kind, recordID, eff.EffectType()); err != nil {
		e.logger.Error("failed to resolve side effect failures", "effect", eff.EffectType(), "error", err)
	}
}

func effectTarget(eff effects.Effect) (record.Kind, string) {
	switch typed := eff.(type) {
	case effects.LinkEffect:
		return record.KindRegistryPV, typed.RegistryID
	case effects.RenderEffect:
		return record.Kind(typed.Kind), typed.RecordID
	case effects.NotifyEffect:
		return record.Kind(typed.Kind), typed.RecordID
	default:
		return "", ""
	}
}

// BackgroundExecutor runs follow-ups on bounded goroutines so callers
// return as soon as the record is committed. Close waits for running work.
type BackgroundExecutor struct {
	next   EffectExecutor
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewBackgroundExecutor wraps next with at most workers concurrent batches.
func NewBackgroundExecutor(next EffectExecutor, workers int, logger *slog.Logger) *BackgroundExecutor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundExecutor{
		next:   next,
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger.With("component", "effects"),
	}
}

// Execute schedules effs and returns immediately.
// The batch outlives the caller's context but keeps its values.
func (b *BackgroundExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	if len(effs) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.sem.Acquire(ctx, 1); err != nil {
			b.logger.Error("failed to schedule side effects", "error", err)
			return
		}
		defer b.sem.Release(1)
		// Failures are already logged and recorded by the wrapped executor.
		_ = b.next.Execute(ctx, effs)
	}()
	return nil
}

// Close waits for scheduled batches to finish.
func (b *BackgroundExecutor) Close() error {
	b.wg.Wait()
	return nil
}

// sourceOf converts a stored record into the input of a document layout.
func sourceOf(rec *secondary.RecordRecord) document.Source {
	created, _ := time.Parse(time.RFC3339, rec.CreatedAt)
	return document.Source{
		Kind:       rec.Kind,
		Identifier: rec.Identifier,
		Status:     rec.Status,
		CreatedBy:  rec.CreatedBy,
		CreatedAt:  created,
		Fields:     rec.Fields,
	}
}
