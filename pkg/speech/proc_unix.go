//go:build unix

package speech

import (
	"os/exec"
	"syscall"
)

// detach moves the synthesizer into its own process group so a terminal
// SIGINT reaches only the controller, which then stops the utterance.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
