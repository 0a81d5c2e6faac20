package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nassav/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Tool.Binary != "m3u8-downloader" {
		t.Fatalf("unexpected default tool binary %q", cfg.Tool.Binary)
	}
	if cfg.Workflow.MaxLogLines != 3000 {
		t.Fatalf("unexpected default max log lines %d", cfg.Workflow.MaxLogLines)
	}
}

func TestLoadAppliesOverridesAndDerivedPaths(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "nassav.toml")
	content := strings.Join([]string{
		"[paths]",
		`output_dir = "` + filepath.Join(base, "out") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		"[tool]",
		`binary = "fetcher"`,
		"wait_timeout = 60",
		"grace_period = 2",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Tool.Binary != "fetcher" {
		t.Fatalf("override not applied: %q", cfg.Tool.Binary)
	}
	if cfg.Paths.StateFile != filepath.Join(base, "logs", "state.json") {
		t.Fatalf("unexpected state file %q", cfg.Paths.StateFile)
	}
	if cfg.Paths.LockIndicator != filepath.Join(base, "logs", "downloader.lock") {
		t.Fatalf("unexpected lock indicator %q", cfg.Paths.LockIndicator)
	}
	if cfg.Tool.WorkDir != cfg.Paths.OutputDir {
		t.Fatalf("work dir should default to output dir, got %q", cfg.Tool.WorkDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty tool binary", func(c *config.Config) { c.Tool.Binary = "" }},
		{"grace period exceeds wait timeout", func(c *config.Config) {
			c.Tool.GracePeriod = 100
			c.Tool.WaitTimeout = 50
		}},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTaskDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/data/media"
	if got := cfg.TaskDir("ABC-123"); got != "/data/media/ABC-123" {
		t.Fatalf("unexpected task dir %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[tool]") {
		t.Fatal("sample config missing [tool] section")
	}
}
