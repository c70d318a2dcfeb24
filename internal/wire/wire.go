// Package wire provides dependency injection for gendbuntu.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"

	cliadapter "github.com/example/gendbuntu/internal/adapters/cli"
	"github.com/example/gendbuntu/internal/adapters/filesystem"
	"github.com/example/gendbuntu/internal/adapters/pdf"
	"github.com/example/gendbuntu/internal/adapters/sqlite"
	"github.com/example/gendbuntu/internal/adapters/webhook"
	"github.com/example/gendbuntu/internal/app"
	"github.com/example/gendbuntu/internal/config"
	"github.com/example/gendbuntu/internal/db"
	"github.com/example/gendbuntu/internal/logging"
	"github.com/example/gendbuntu/internal/ports/primary"
)

// Container holds the wired services and the resources they own.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	RecordService primary.RecordService

	conn       *sql.DB
	background *app.BackgroundExecutor
}

// Build wires every adapter and service from cfg.
func Build(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	dialect, err := db.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dialect, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Create repository adapters (secondary ports)
	records := sqlite.NewRecordRepository(conn, dialect)
	alloc, err := sqlite.NewSequenceAllocator(cfg.Numbering.Strategy, conn, dialect)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.Numbering.Strategy == sqlite.StrategyCount {
		logger.Warn("count numbering reuses identifiers after deletion; prefer the counter strategy")
	}
	tx := sqlite.NewTransactor(conn)
	auditRepo := sqlite.NewAuditRepository(conn, dialect)
	failures := sqlite.NewSideEffectRepository(conn, dialect)

	// Document and notification adapters
	renderer := pdf.NewRenderer(cfg.Documents.Workers)
	store, err := filesystem.NewDocumentStore(cfg.Documents.Dir)
	if err != nil {
		conn.Close()
		return nil, err
	}
	notifier := webhook.NewNotifier(webhook.Options{
		URL:           cfg.Notifications.WebhookURL,
		Timeout:       cfg.Notifications.Timeout,
		RatePerSecond: cfg.Notifications.RatePerSecond,
		Burst:         cfg.Notifications.Burst,
	}, logger)

	linker := app.NewLinker(records, alloc, tx, failures, logger, cfg.Numbering.MaxAttempts)
	executor := app.NewEffectExecutor(records, linker, renderer, store, notifier, failures, logger)

	c := &Container{Config: cfg, Logger: logger, conn: conn}

	var followUps app.EffectExecutor = executor
	if cfg.SideEffects.Mode == config.ModeBackground {
		c.background = app.NewBackgroundExecutor(executor, cfg.SideEffects.Workers, logger)
		followUps = c.background
	}

	c.RecordService = app.NewRecordService(app.RecordServiceDeps{
		Records:     records,
		Allocator:   alloc,
		Tx:          tx,
		Audit:       sqlite.NewAuditWriterAdapter(auditRepo),
		AuditLog:    auditRepo,
		Failures:    failures,
		Renderer:    renderer,
		Linker:      linker,
		Executor:    executor,
		FollowUps:   followUps,
		Logger:      logger,
		MaxAttempts: cfg.Numbering.MaxAttempts,
	})
	return c, nil
}

// Close waits for background follow-ups, then closes the database.
func (c *Container) Close() error {
	var errs []error
	if c.background != nil {
		errs = append(errs, c.background.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

var (
	current *Container
	once    sync.Once
	workDir = "."
)

// SetWorkDir sets the directory holding .gendbuntu/. It must be called
// before the first service is requested.
func SetWorkDir(dir string) {
	workDir = dir
}

// RecordService returns the singleton RecordService instance.
func RecordService() primary.RecordService {
	once.Do(initServices)
	return current.RecordService
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	once.Do(initServices)
	return current.Logger
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cfg, err := config.LoadConfig(workDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	c, err := Build(cfg, logging.New(os.Stderr, cfg.Log))
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	current = c
}

// Close releases the singleton's resources if it was ever built.
func Close() error {
	if current == nil {
		return nil
	}
	return current.Close()
}

// RecordAdapter returns a new RecordAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func RecordAdapter() *cliadapter.RecordAdapter {
	return RecordAdapterWithOutput(os.Stdout)
}

// RecordAdapterWithOutput returns a new RecordAdapter writing to the given output.
func RecordAdapterWithOutput(out io.Writer) *cliadapter.RecordAdapter {
	return cliadapter.NewRecordAdapter(RecordService(), out)
}
