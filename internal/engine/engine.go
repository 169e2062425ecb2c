package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"opsdesk/internal/config"
	"opsdesk/internal/decisions"
	"opsdesk/internal/domain"
	"opsdesk/internal/events"
	"opsdesk/internal/logging"
	"opsdesk/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Log    logrus.FieldLogger
	// Decisions overrides where decision records live. Nil means the SQLite ledger.
	Decisions decisions.Persistence
	Executors *decisions.Registry
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Events:    events.Writer{},
		Config:    cfg,
		Now:       time.Now,
		Log:       logging.Discard(),
		Executors: decisions.NewRegistry(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	return logging.Discard()
}

func (e Engine) config() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default("")
}

// Ledger returns the SQLite-backed decision persistence.
func (e Engine) Ledger() Ledger {
	return Ledger{DB: e.DB, Repo: e.Repo, Events: e.Events}
}

func (e Engine) persistence() decisions.Persistence {
	if e.Decisions != nil {
		return e.Decisions
	}
	return e.Ledger()
}

// ledgerBacked reports whether decision events are written by the persistence itself.
func (e Engine) ledgerBacked() bool {
	_, ok := e.persistence().(Ledger)
	return ok
}

// Store is the decision store over the configured persistence.
func (e Engine) Store() decisions.Store {
	s := decisions.NewStore(e.persistence())
	s.Now = e.now
	return s
}

func (e Engine) Workflow() decisions.Workflow {
	return decisions.NewWorkflow(e.Store())
}

// inTx runs fn in a transaction and commits when it returns nil.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// appendEvent writes a standalone event for mutations that happened outside SQLite.
func (e Engine) appendEvent(ctx context.Context, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		return e.Events.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload)
	})
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsNotFound reports whether err means an unknown id.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
