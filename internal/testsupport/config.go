package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"nassav/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, shortens supervision timeouts so failing paths
// do not stall the suite, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateFile = filepath.Join(base, "logs", "state.json")
	cfgVal.Paths.LockIndicator = filepath.Join(base, "logs", "downloader.lock")
	cfgVal.Paths.SocketPath = filepath.Join(base, "logs", "nassavd.sock")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Tool.WaitTimeout = 30
	cfgVal.Tool.GracePeriod = 1
	cfgVal.Tool.ArtifactWaitSeconds = 2
	cfgVal.Workflow.ProgressIntervalMillis = 20
	cfgVal.Workflow.LogIntervalMillis = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithToolScript writes script as an executable shell stub and points the
// tool binary at it. The stub is invoked as `<stub> [args...] <KEY>` exactly
// like a real downloader.
func WithToolScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tool.Binary = WriteScript(b.t, filepath.Join(b.baseDir, "bin", "downloader"), script)
	}
}

// WithToolArgs sets extra arguments passed before the asset key.
func WithToolArgs(args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tool.Args = args
	}
}

// WriteScript writes a shell script at path, creating parent directories,
// and returns the path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir script dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}
