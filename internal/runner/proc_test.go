package runner_test

import (
	"path/filepath"
	"testing"
	"time"

	"nassav/internal/runner"
	"nassav/internal/testsupport"
)

func startScript(t *testing.T, body string, args ...string) *runner.Command {
	t.Helper()
	dir := t.TempDir()
	script := testsupport.WriteScript(t, filepath.Join(dir, "tool"), body)
	cmd, err := runner.StartCommand(script, args, dir)
	if err != nil {
		t.Fatalf("StartCommand: %v", err)
	}
	return cmd
}

func collectLines(cmd *runner.Command) []string {
	var out []string
	for line := range cmd.Lines() {
		out = append(out, line)
	}
	return out
}

func TestCommandStreamsMergedOutput(t *testing.T) {
	cmd := startScript(t, "echo out-line\necho err-line >&2\nprintf '42%%\\r'\n")

	lines := collectLines(cmd)
	code, err := cmd.Wait(5 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	want := map[string]bool{"out-line": false, "err-line": false, "42%": false}
	for _, line := range lines {
		if _, ok := want[line]; ok {
			want[line] = true
		}
	}
	for line, seen := range want {
		if !seen {
			t.Fatalf("line %q missing from output %q", line, lines)
		}
	}
}

func TestCommandReportsExitCode(t *testing.T) {
	cmd := startScript(t, "exit 3\n")
	collectLines(cmd)
	code, err := cmd.Wait(5 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}

func TestCommandWaitTimeoutForcesKill(t *testing.T) {
	cmd := startScript(t, "sleep 60\n")
	go collectLines(cmd)

	start := time.Now()
	_, err := cmd.Wait(200 * time.Millisecond)
	if err != runner.ErrWaitTimeout {
		t.Fatalf("Wait error = %v, want ErrWaitTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("forced kill took %s", elapsed)
	}
}

func TestCommandTerminateKillsGroup(t *testing.T) {
	// The script spawns a grandchild; Terminate must take down both or the
	// output channel never closes.
	cmd := startScript(t, "sleep 60 &\nsleep 60\n")

	done := make(chan struct{})
	go func() {
		collectLines(cmd)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cmd.Terminate(500 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("output channel still open after Terminate; grandchild survived")
	}
}

func TestCommandSignalGraceful(t *testing.T) {
	cmd := startScript(t, "trap 'exit 0' TERM\nwhile true; do sleep 0.1; done\n")
	go collectLines(cmd)

	time.Sleep(100 * time.Millisecond)
	if err := cmd.Signal(runner.SignalGraceful); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	code, err := cmd.Wait(5 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 from TERM trap", code)
	}
}
