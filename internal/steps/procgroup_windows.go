//go:build windows

package steps

import "os/exec"

// setProcGroup only bounds the pipe drain on Windows, which has no Unix
// process groups; exec.CommandContext kills the direct child on cancel.
func setProcGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = killGracePeriod
}
