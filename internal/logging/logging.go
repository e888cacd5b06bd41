// Package logging configures PartFlow's charmbracelet/log output.
//
// All log output goes to stderr; stdout is reserved for plans, run summaries
// and JSON. Setup must run before New, because child loggers copy the level
// and formatter of the default logger when they are created.
//
//	logging.Setup(logging.ApplyEnv(logging.Options{Verbose: verbose}, os.LookupEnv))
//	logger := logging.New("engine")
//	logger.Info("level started", "level", 1)
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Level aliases for charmbracelet/log levels.
// Re-exported so consumers do not need to import charmbracelet/log directly.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// Environment variables consulted by ApplyEnv.
const (
	EnvVerbose   = "PARTFLOW_VERBOSE"
	EnvQuiet     = "PARTFLOW_QUIET"
	EnvLogFormat = "PARTFLOW_LOG_FORMAT"
)

// Options selects the global log level and format.
type Options struct {
	// Verbose enables debug output.
	Verbose bool
	// Quiet limits output to errors. It wins over Verbose.
	Quiet bool
	// JSON switches to one JSON object per line.
	JSON bool
}

// Level returns the log level the options select.
func (o Options) Level() log.Level {
	switch {
	case o.Quiet:
		return log.ErrorLevel
	case o.Verbose:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// ApplyEnv turns on options requested through PARTFLOW_VERBOSE,
// PARTFLOW_QUIET and PARTFLOW_LOG_FORMAT=json. Environment values only ever
// enable a setting; a flag already set stays set. Unparseable booleans are
// ignored.
func ApplyEnv(opts Options, lookup func(string) (string, bool)) Options {
	if lookup == nil {
		return opts
	}
	if envBool(lookup, EnvVerbose) {
		opts.Verbose = true
	}
	if envBool(lookup, EnvQuiet) {
		opts.Quiet = true
	}
	if v, ok := lookup(EnvLogFormat); ok && strings.EqualFold(strings.TrimSpace(v), "json") {
		opts.JSON = true
	}
	return opts
}

func envBool(lookup func(string) (string, bool), key string) bool {
	v, ok := lookup(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// Setup configures the global logger. Call once during CLI initialization.
// Timestamps are shown in verbose text mode only, where step timing matters.
func Setup(opts Options) {
	log.SetLevel(opts.Level())
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(opts.Verbose && !opts.JSON)

	if opts.JSON {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New creates a logger with the given component prefix. An empty component
// produces a logger without a prefix.
//
//	logger := logging.New("config")
//	logger.Info("loading partflow.toml")
//	// Output: INFO <config> loading partflow.toml
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput overrides the output writer for the default logger. Tests use it
// to capture output; restore it with t.Cleanup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
