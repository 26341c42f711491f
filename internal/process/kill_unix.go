//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// KillProcessGroup sends SIGKILL to every process in pid's group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort; cmd.WaitDelay closes the pipes if a grandchild survives.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// setProcessGroup starts cmd as the leader of a new process group, so a kill
// reaches the helpers a TeX run forks (mktexpk, kpsewhich, gs).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
