// Command partflow runs dependency-ordered workflows of configured steps.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
