//go:build !windows

package steps

import (
	"os/exec"
	"syscall"
)

// setProcGroup places cmd in a new process group and makes context
// cancellation SIGKILL the whole group, so a timed-out step also takes down
// the interpreters and tools its script spawned.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Send SIGKILL to the entire process group (negative PID).
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	// Grandchildren may hold the output pipes open after the kill.
	cmd.WaitDelay = killGracePeriod
}
