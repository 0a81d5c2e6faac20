package runner

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Signal selects the level of the termination request sent to the child's
// process group.
type Signal int

const (
	// SignalGraceful asks the group to shut down (SIGTERM).
	SignalGraceful Signal = iota
	// SignalForced kills the group outright (SIGKILL).
	SignalForced
)

// ErrWaitTimeout reports that the child did not exit within the allowed
// window and was forcibly killed.
var ErrWaitTimeout = errors.New("wait timeout exceeded")

const scanBufferSize = 256 * 1024

// Command owns one running child process. The child is placed in its own
// process group so signals reach any grandchildren it spawns.
type Command struct {
	cmd      *exec.Cmd
	lines    chan string
	waitDone chan struct{}
	waitErr  error
}

// StartCommand launches binary with args in dir, merging stdout and stderr
// into the Lines stream. The returned Command is already running.
func StartCommand(binary string, args []string, dir string) (*Command, error) {
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.Dir = dir
	setProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	// The child holds its own copy of the write end; closing ours lets the
	// reader observe EOF once the whole group has exited.
	pw.Close()

	c := &Command{
		cmd:      cmd,
		lines:    make(chan string, 64),
		waitDone: make(chan struct{}),
	}

	go func() {
		defer pr.Close()
		defer close(c.lines)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, scanBufferSize), scanBufferSize)
		scanner.Split(scanConsoleLines)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
	}()
	go func() {
		c.waitErr = cmd.Wait()
		close(c.waitDone)
	}()

	return c, nil
}

// PID returns the child's process id.
func (c *Command) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Lines returns the merged output stream. The channel closes once every
// process holding the output descriptor has exited.
func (c *Command) Lines() <-chan string {
	return c.lines
}

// Signal delivers sig to the child's entire process group.
func (c *Command) Signal(sig Signal) error {
	pid := c.PID()
	if pid <= 0 {
		return errors.New("process not started")
	}
	return signalGroup(pid, sig)
}

// Wait blocks until the child exits, forcing a group kill if timeout elapses
// first. It returns the exit code; a timeout is reported via ErrWaitTimeout
// with the post-kill exit code.
func (c *Command) Wait(timeout time.Duration) (int, error) {
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-c.waitDone:
		case <-timer.C:
			_ = c.Signal(SignalForced)
			<-c.waitDone
			return c.exitCode(), ErrWaitTimeout
		}
	} else {
		<-c.waitDone
	}
	return c.exitCode(), c.waitForeignErr()
}

// Terminate runs the escalation sequence: graceful signal to the group, a
// grace period, then a forced kill. It returns once the child has exited.
func (c *Command) Terminate(grace time.Duration) {
	_ = c.Signal(SignalGraceful)
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-c.waitDone:
		return
	case <-timer.C:
	}
	_ = c.Signal(SignalForced)
	<-c.waitDone
}

func (c *Command) exitCode() int {
	var exitErr *exec.ExitError
	if errors.As(c.waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if c.waitErr != nil {
		return -1
	}
	return 0
}

// waitForeignErr filters expected non-zero-exit errors out of Wait's error
// result; callers judge those from the exit code.
func (c *Command) waitForeignErr() error {
	var exitErr *exec.ExitError
	if c.waitErr == nil || errors.As(c.waitErr, &exitErr) {
		return nil
	}
	return c.waitErr
}
