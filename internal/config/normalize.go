package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTool()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateFile) == "" {
		c.Paths.StateFile = filepath.Join(c.Paths.LogDir, "state.json")
	}
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockIndicator) == "" {
		c.Paths.LockIndicator = filepath.Join(c.Paths.LogDir, "downloader.lock")
	}
	if c.Paths.LockIndicator, err = expandPath(c.Paths.LockIndicator); err != nil {
		return fmt.Errorf("paths.lock_indicator: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.LogDir, "nassavd.sock")
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeTool() {
	c.Tool.Binary = strings.TrimSpace(c.Tool.Binary)
	c.Tool.WorkDir = strings.TrimSpace(c.Tool.WorkDir)
	if c.Tool.WorkDir == "" {
		c.Tool.WorkDir = c.Paths.OutputDir
	}
	if c.Tool.WaitTimeout <= 0 {
		c.Tool.WaitTimeout = defaultWaitTimeout
	}
	if c.Tool.GracePeriod <= 0 {
		c.Tool.GracePeriod = defaultGracePeriod
	}
	if c.Tool.ArtifactWaitSeconds <= 0 {
		c.Tool.ArtifactWaitSeconds = defaultArtifactWaitSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ProgressIntervalMillis <= 0 {
		c.Workflow.ProgressIntervalMillis = defaultProgressIntervalMS
	}
	if c.Workflow.LogIntervalMillis <= 0 {
		c.Workflow.LogIntervalMillis = defaultLogIntervalMS
	}
	if c.Workflow.MaxLogLines <= 0 {
		c.Workflow.MaxLogLines = defaultMaxLogLines
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
