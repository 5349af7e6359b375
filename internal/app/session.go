// Package app wires a workspace into a ready-to-use engine: it opens the
// database, applies migrations, loads commitline.yml and builds the logger.
package app

import (
	"context"
	"database/sql"

	"commitline/internal/config"
	"commitline/internal/db"
	"commitline/internal/engine"
	clerrors "commitline/internal/errors"
	"commitline/internal/logging"
	"commitline/internal/migrate"
)

type Options struct {
	Workspace string
	Verbose   bool
	Quiet     bool
	// NoLogFile keeps log output on the console only.
	NoLogFile bool
}

// Session owns the resources behind one CLI invocation.
type Session struct {
	Workspace     string
	DB            *sql.DB
	Config        *config.Config
	Engine        engine.Engine
	Log           *logging.Logger
	SchemaVersion int
}

// Open prepares a session for the workspace. A missing commitline.yml means
// default scoring parameters; an invalid one is an error.
func Open(ctx context.Context, opts Options) (*Session, error) {
	logOpts := logging.Options{Verbose: opts.Verbose, Quiet: opts.Quiet}
	if !opts.NoLogFile {
		logOpts.Workspace = opts.Workspace
	}
	log, logErr := logging.New(logOpts)
	if logErr != nil {
		log.Warn().Err(logErr).Msg("file logging disabled")
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		log.Close()
		return nil, clerrors.Wrapf(err, "load %s", config.Path(opts.Workspace))
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		log.Close()
		return nil, err
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		log.Close()
		return nil, clerrors.Wrap(err, "migrate")
	}
	log.Debug().Str("workspace", opts.Workspace).Int("schema_version", version).Msg("session opened")
	return &Session{
		Workspace:     opts.Workspace,
		DB:            conn,
		Config:        cfg,
		Engine:        engine.New(conn, cfg, log.Logger),
		Log:           log,
		SchemaVersion: version,
	}, nil
}

// Close releases the database and log file.
func (s *Session) Close() error {
	err := s.DB.Close()
	if lerr := s.Log.Close(); err == nil {
		err = lerr
	}
	return err
}
