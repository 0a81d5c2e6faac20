//go:build unix

package runner

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(pid int, sig Signal) error {
	signo := unix.SIGTERM
	if sig == SignalForced {
		signo = unix.SIGKILL
	}
	if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID targets the full group, including grandchildren.
		return unix.Kill(-pgid, signo)
	}
	return unix.Kill(pid, signo)
}
