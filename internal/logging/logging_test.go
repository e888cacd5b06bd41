package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefault points the global logger at a buffer and restores the
// defaults when the test ends. charmbracelet/log keeps global state, so these
// tests do not run in parallel.
func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
		log.SetFormatter(log.TextFormatter)
		log.SetReportTimestamp(false)
		log.SetTimeFormat(log.DefaultTimeFormat)
	})
	var buf bytes.Buffer
	return &buf
}

// envLookup returns an os.LookupEnv replacement backed by env.
func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestOptions_Level(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want log.Level
	}{
		{name: "default", opts: Options{}, want: LevelInfo},
		{name: "verbose", opts: Options{Verbose: true}, want: LevelDebug},
		{name: "quiet", opts: Options{Quiet: true}, want: LevelError},
		{name: "quiet wins over verbose", opts: Options{Verbose: true, Quiet: true}, want: LevelError},
		{name: "json keeps info", opts: Options{JSON: true}, want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Level())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		env  map[string]string
		want Options
	}{
		{name: "nothing set", want: Options{}},
		{name: "verbose numeric", env: map[string]string{EnvVerbose: "1"}, want: Options{Verbose: true}},
		{name: "verbose padded", env: map[string]string{EnvVerbose: " TRUE "}, want: Options{Verbose: true}},
		{name: "quiet", env: map[string]string{EnvQuiet: "true"}, want: Options{Quiet: true}},
		{name: "json any case", env: map[string]string{EnvLogFormat: "Json"}, want: Options{JSON: true}},
		{name: "text format leaves json off", env: map[string]string{EnvLogFormat: "text"}, want: Options{}},
		{name: "unparseable verbose", env: map[string]string{EnvVerbose: "loud"}, want: Options{}},
		{name: "unparseable quiet", env: map[string]string{EnvQuiet: "shh"}, want: Options{}},
		{name: "empty value", env: map[string]string{EnvVerbose: ""}, want: Options{}},
		{name: "false verbose", env: map[string]string{EnvVerbose: "false"}, want: Options{}},
		{name: "zero quiet", env: map[string]string{EnvQuiet: "0"}, want: Options{}},
		{
			name: "false does not clear a flag",
			in:   Options{Verbose: true, Quiet: true},
			env:  map[string]string{EnvVerbose: "false", EnvQuiet: "0"},
			want: Options{Verbose: true, Quiet: true},
		},
		{
			name: "unparseable does not clear a flag",
			in:   Options{JSON: true},
			env:  map[string]string{EnvLogFormat: "xml"},
			want: Options{JSON: true},
		},
		{
			name: "all three",
			env:  map[string]string{EnvVerbose: "yes-ish", EnvQuiet: "t", EnvLogFormat: "json"},
			want: Options{Quiet: true, JSON: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyEnv(tt.in, envLookup(tt.env)))
		})
	}
}

func TestApplyEnv_NilLookup(t *testing.T) {
	assert.Equal(t, Options{Quiet: true}, ApplyEnv(Options{Quiet: true}, nil))
}

func TestSetup_Level(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want log.Level
	}{
		{name: "default", opts: Options{}, want: log.InfoLevel},
		{name: "verbose", opts: Options{Verbose: true}, want: log.DebugLevel},
		{name: "quiet", opts: Options{Quiet: true, Verbose: true}, want: log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureDefault(t)
			Setup(tt.opts)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestSetup_JSONFormat(t *testing.T) {
	buf := captureDefault(t)
	Setup(Options{JSON: true, Verbose: true})
	SetOutput(buf)

	New("engine").Info("level started", "steps", 2)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "output: %s", line)
	assert.Equal(t, "level started", entry["msg"])
	assert.Equal(t, "engine", entry["prefix"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(2), entry["steps"])
	assert.NotContains(t, entry, "time", "JSON mode never reports timestamps")
}

func TestSetup_TextAfterJSON(t *testing.T) {
	buf := captureDefault(t)
	Setup(Options{JSON: true})
	Setup(Options{})
	SetOutput(buf)

	log.Info("plain")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	assert.Contains(t, buf.String(), "plain")
}

func TestSetup_TimestampOnlyInVerboseText(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantTime bool
	}{
		{name: "default text", opts: Options{}},
		{name: "verbose text", opts: Options{Verbose: true}, wantTime: true},
		{name: "verbose json", opts: Options{Verbose: true, JSON: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureDefault(t)
			Setup(tt.opts)
			SetOutput(buf)
			log.SetTimeFormat("2006")

			log.Warn("stamp")
			year := time2006Prefix(buf.String())
			assert.Equal(t, tt.wantTime, year, "output: %q", buf.String())
		})
	}
}

// time2006Prefix reports whether a text log line starts with a four-digit
// year, which is how the "2006" time format renders.
func time2006Prefix(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return false
	}
	for _, r := range s[:4] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	buf := captureDefault(t)
	Setup(Options{Quiet: true})
	SetOutput(buf)

	logger := New("config")
	logger.Info("hidden")
	logger.Warn("hidden too")
	logger.Error("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "config")
}

func TestNew_EmptyComponentHasNoPrefix(t *testing.T) {
	buf := captureDefault(t)
	Setup(Options{JSON: true})
	SetOutput(buf)

	New("").Info("bare")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.NotContains(t, entry, "prefix")
}
