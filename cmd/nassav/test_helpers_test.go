package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"nassav/internal/daemon"
	"nassav/internal/ipc"
	"nassav/internal/testsupport"
)

const quickToolScript = `key="$1"
mkdir -p "$key"
echo "60%"
printf 'data' > "$key/$key.mp4"
exit 0
`

// startTestDaemon runs a daemon with an in-process IPC server and returns
// the socket path CLI commands should dial.
func startTestDaemon(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithToolScript(quickToolScript))
	cfg.Paths.APIBind = ""

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	srv, err := ipc.NewServer(context.Background(), cfg.Paths.SocketPath, d, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return cfg.Paths.SocketPath
}

func runCLI(t *testing.T, args []string, socket string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
