// Package logging builds the zerolog logger used by the CLI and the engine.
//
// Output goes to stderr (colored console on a TTY, JSON otherwise) and to a
// rotating file inside the workspace state directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDir        = "logs"
	logFileName   = "commitline.log"
	maxSizeMB     = 5
	maxBackups    = 3
	maxAgeDays    = 28
	stateDirName  = ".commitline"
	componentName = "component"
)

type Options struct {
	Verbose bool
	Quiet   bool
	// Workspace is the project root; the log file lives under its state
	// directory. Empty disables file logging.
	Workspace string
	// Console overrides stderr, mainly for tests.
	Console io.Writer
}

// Logger wraps the configured zerolog.Logger and the file it writes to.
type Logger struct {
	zerolog.Logger
	file io.Closer
}

// Close flushes and closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// New returns a logger for opts. Failing to open the log file is not fatal;
// the logger falls back to console output and the error is returned alongside.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = selectOutput()
	}
	out := &Logger{}
	writer := console
	var fileErr error
	if opts.Workspace != "" {
		lj, err := fileWriter(opts.Workspace)
		if err != nil {
			fileErr = err
		} else {
			out.file = lj
			writer = zerolog.MultiLevelWriter(console, lj)
		}
	}
	out.Logger = zerolog.New(writer).Level(selectLevel(opts.Verbose, opts.Quiet)).With().Timestamp().Logger()
	return out, fileErr
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(componentName, name).Logger()
}

// FilePath returns where the rotating log file for a workspace lives.
func FilePath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, stateDirName, logDir, logFileName)
}

func fileWriter(workspace string) (*lumberjack.Logger, error) {
	path := FilePath(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}, nil
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}
