package cli

import (
	"fmt"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/logging"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/steps"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// charmLogger is the minimal interface satisfied by *charmbracelet/log.Logger.
// It uses interface{} for the message argument, unlike the string-typed
// interfaces required by internal packages.
type charmLogger interface {
	Debug(msg interface{}, kv ...interface{})
}

// stepDebugLogger wraps a charmbracelet/log.Logger to satisfy the steps
// package's unexported commandLogger interface, which requires
// Debug(msg string, ...).
type stepDebugLogger struct {
	logger charmLogger
}

func (l *stepDebugLogger) Debug(msg string, kv ...interface{}) {
	l.logger.Debug(msg, kv...)
}

// engineSetup bundles what the run and plan commands build from a resolved
// configuration.
type engineSetup struct {
	engine     *workflow.Engine
	workflow   workflow.Config
	registered []string
}

// buildEngine converts rc into an engine with a CommandExecutor registered
// for every step that has a command. pub may be nil.
func buildEngine(rc *config.ResolvedConfig, pub workflow.EventPublisher) (*engineSetup, error) {
	wc, err := rc.Config.ToWorkflow()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg := workflow.NewRegistry()
	registered := steps.RegisterFromConfig(reg, rc.Config.Steps, configBaseDir(rc),
		&stepDebugLogger{logger: logging.New("step")})

	opts := []workflow.EngineOption{
		workflow.WithRegistry(reg),
		workflow.WithLogger(logging.New("engine")),
	}
	if pub != nil {
		opts = append(opts, workflow.WithPublisher(pub))
	}
	return &engineSetup{
		engine:     workflow.NewEngine(wc, opts...),
		workflow:   wc,
		registered: registered,
	}, nil
}

// resolveSelection expands --steps values (comma-separated names or glob
// patterns) against the configured step names. It returns nil when no
// selection was given so the engine falls back to enabled_steps.
func resolveSelection(values []string, cfg *config.Config) ([]string, error) {
	patterns := workflow.SplitSelection(values...)
	if len(patterns) == 0 {
		return nil, nil
	}
	return workflow.ExpandSelection(patterns, cfg.StepNames())
}
