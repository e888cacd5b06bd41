// Command gen-completions writes partflow's shell completion scripts into a
// directory that release archives bundle.
//
// Usage:
//
//	go run ./scripts/gen-completions [output-dir]
//
// The default output directory is "completions".
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/cli"
)

// completionFile pairs an output file name with the cobra generator for one
// shell. Names follow each shell's lookup convention for a "partflow" binary.
type completionFile struct {
	shell string
	name  string
	gen   func(cmd *cobra.Command, w io.Writer) error
}

var completionFiles = []completionFile{
	{shell: "bash", name: "partflow.bash", gen: func(c *cobra.Command, w io.Writer) error { return c.GenBashCompletionV2(w, true) }},
	{shell: "zsh", name: "_partflow", gen: func(c *cobra.Command, w io.Writer) error { return c.GenZshCompletion(w) }},
	{shell: "fish", name: "partflow.fish", gen: func(c *cobra.Command, w io.Writer) error { return c.GenFishCompletion(w, true) }},
	{shell: "powershell", name: "partflow.ps1", gen: func(c *cobra.Command, w io.Writer) error { return c.GenPowerShellCompletionWithDesc(w) }},
}

func main() {
	outDir := "completions"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	written, err := writeCompletions(cli.NewRootCmd(), outDir)
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gen-completions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("All completions written to %s/\n", outDir)
}

// writeCompletions generates every completion file under outDir and returns
// the paths written so far, even on error.
func writeCompletions(root *cobra.Command, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %q: %w", outDir, err)
	}

	written := make([]string, 0, len(completionFiles))
	for _, cf := range completionFiles {
		path := filepath.Join(outDir, cf.name)
		if err := writeFile(path, func(w io.Writer) error { return cf.gen(root, w) }); err != nil {
			return written, fmt.Errorf("%s completion: %w", cf.shell, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fill(f)
}
