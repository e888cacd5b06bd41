package internal_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectRoot returns the absolute path to the project root directory.
// It walks up from the working directory until it finds go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (no go.mod found in any parent directory)")
		}
		dir = parent
	}
}

// readFileContent reads a file and returns its content as a string.
func readFileContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(data)
}

var internalPackages = []string{
	"buildinfo", "cli", "config", "logging", "steps", "tui", "workflow",
}

func TestInternalSubpackages_Exist(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	for _, pkg := range internalPackages {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			pkgDir := filepath.Join(root, "internal", pkg)
			info, err := os.Stat(pkgDir)
			require.NoError(t, err, "internal/%s directory does not exist", pkg)
			assert.True(t, info.IsDir(), "internal/%s is not a directory", pkg)
		})
	}
}

func TestInternalSubpackages_Count(t *testing.T) {
	t.Parallel()

	entries, err := os.ReadDir(filepath.Join(projectRoot(t), "internal"))
	require.NoError(t, err, "failed to read internal/ directory")

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	assert.ElementsMatch(t, internalPackages, dirs)
}

// TestInternalSubpackages_HavePackageDoc checks that every package carries a
// "// Package <name>" comment in one of its non-test files.
func TestInternalSubpackages_HavePackageDoc(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	for _, pkg := range internalPackages {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			files, err := filepath.Glob(filepath.Join(root, "internal", pkg, "*.go"))
			require.NoError(t, err)

			want := "// Package " + pkg + " "
			found := false
			for _, f := range files {
				if strings.HasSuffix(f, "_test.go") {
					continue
				}
				if strings.Contains(readFileContent(t, f), want) {
					found = true
					break
				}
			}
			assert.True(t, found, "internal/%s has no package doc comment", pkg)
		})
	}
}

func TestGoMod_ModulePath(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))

	assert.Contains(t, content, "module github.com/AbdelazizMoustafa10m/PartFlow\n",
		"go.mod must declare module path as github.com/AbdelazizMoustafa10m/PartFlow")
	assert.Contains(t, content, "go 1.24", "go.mod must have a Go 1.24+ directive")
	assert.NotContains(t, content, "replace ", "go.mod must not contain replace directives")
}

func TestGoMod_DirectDependencies(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))

	expectedDeps := []struct {
		name       string
		modulePath string
	}{
		{name: "cobra", modulePath: "github.com/spf13/cobra"},
		{name: "pflag", modulePath: "github.com/spf13/pflag"},
		{name: "bubbletea", modulePath: "github.com/charmbracelet/bubbletea"},
		{name: "lipgloss", modulePath: "github.com/charmbracelet/lipgloss"},
		{name: "bubbles", modulePath: "github.com/charmbracelet/bubbles"},
		{name: "huh", modulePath: "github.com/charmbracelet/huh"},
		{name: "log", modulePath: "github.com/charmbracelet/log"},
		{name: "termenv", modulePath: "github.com/muesli/termenv"},
		{name: "toml", modulePath: "github.com/BurntSushi/toml"},
		{name: "sync", modulePath: "golang.org/x/sync"},
		{name: "doublestar", modulePath: "github.com/bmatcuk/doublestar/v4"},
		{name: "testify", modulePath: "github.com/stretchr/testify"},
		{name: "xxhash", modulePath: "github.com/cespare/xxhash/v2"},
	}

	for _, dep := range expectedDeps {
		t.Run(dep.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, content, dep.modulePath,
				"go.mod must declare direct dependency on %s (%s)", dep.name, dep.modulePath)
		})
	}
}

func TestGoMod_DependencyVersions(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "go.mod"))

	versionChecks := []struct {
		name       string
		dep        string
		minVersion string
	}{
		{name: "toml v1.5.0", dep: "github.com/BurntSushi/toml", minVersion: "v1.5.0"},
		{name: "cobra v1.10+", dep: "github.com/spf13/cobra", minVersion: "v1.10"},
		{name: "doublestar v4.10+", dep: "github.com/bmatcuk/doublestar/v4", minVersion: "v4.10"},
		{name: "sync v0.19+", dep: "golang.org/x/sync", minVersion: "v0.19"},
	}

	for _, vc := range versionChecks {
		t.Run(vc.name, func(t *testing.T) {
			t.Parallel()
			scanner := bufio.NewScanner(strings.NewReader(content))
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if strings.HasPrefix(line, vc.dep+" ") {
					assert.Contains(t, line, vc.minVersion,
						"dependency %s must be at least version %s", vc.dep, vc.minVersion)
					return
				}
			}
			t.Errorf("go.mod has no require line for %s", vc.dep)
		})
	}
}

func TestMainGo_CallsExecute(t *testing.T) {
	t.Parallel()

	content := readFileContent(t, filepath.Join(projectRoot(t), "cmd", "partflow", "main.go"))

	assert.Contains(t, content, "package main")
	assert.Contains(t, content, "os.Exit(cli.Execute())")
}

// TestSourceFiles_InitOnlyRegistersCommands checks that init() appears only
// in the cli package, where it registers cobra commands.
func TestSourceFiles_InitOnlyRegistersCommands(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	for _, pkg := range internalPackages {
		if pkg == "cli" {
			continue
		}
		files, err := filepath.Glob(filepath.Join(root, "internal", pkg, "*.go"))
		require.NoError(t, err)
		for _, f := range files {
			if strings.HasSuffix(f, "_test.go") {
				continue
			}
			assert.NotContains(t, readFileContent(t, f), "func init()",
				"%s must not contain init() functions", f)
		}
	}
}
