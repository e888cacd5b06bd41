package steps

import (
	"path/filepath"
	"sort"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// RegisterFromConfig registers a CommandExecutor in reg for every step that
// has a command configured and returns their names in sorted order. Steps
// without a command are left alone so executors registered in code are not
// replaced. A relative dir is resolved against baseDir, normally the
// directory holding partflow.toml.
func RegisterFromConfig(reg *workflow.Registry, steps map[string]config.StepConfig, baseDir string, logger commandLogger) []string {
	names := make([]string, 0, len(steps))
	for name, sc := range steps {
		if sc.Command == "" {
			continue
		}
		reg.Register(name, NewCommandExecutor(name, specFromConfig(sc, baseDir), logger))
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func specFromConfig(sc config.StepConfig, baseDir string) CommandSpec {
	dir := sc.Dir
	if dir != "" && !filepath.IsAbs(dir) && baseDir != "" {
		dir = filepath.Join(baseDir, dir)
	}
	return CommandSpec{
		Command: sc.Command,
		Args:    append([]string(nil), sc.Args...),
		Dir:     dir,
		Env:     append([]string(nil), sc.Env...),
	}
}
