// Package engine is the commitment lifecycle controller. Every mutating
// operation runs in a single SQLite transaction: the status change, its
// cleanup-plan side effect, the task history entry and the audit event are
// committed together or not at all. Rejected operations return before
// anything is written.
package engine

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"commitline/internal/cleanup"
	"commitline/internal/config"
	"commitline/internal/events"
	"commitline/internal/history"
	"commitline/internal/logging"
	"commitline/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	History history.Logger
	Events  events.Writer
	Cleanup cleanup.Orchestrator
	Config  *config.Config
	Log     zerolog.Logger
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log zerolog.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: db}
	e := Engine{
		DB:     db,
		Repo:   r,
		Config: cfg,
		Log:    logging.Component(log, "engine"),
	}
	return e.WithClock(time.Now)
}

// WithClock returns a copy of e whose engine, history, events and cleanup
// orchestrator all read time from now.
func (e Engine) WithClock(now func() time.Time) Engine {
	e.Now = now
	e.History = history.SQLLogger{Now: now}
	e.Events = events.Writer{Now: now}
	e.Cleanup = cleanup.Orchestrator{
		Repo:    e.Repo,
		History: e.History,
		Events:  e.Events,
		Now:     now,
		Log:     logging.Component(e.Log, "cleanup"),
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
