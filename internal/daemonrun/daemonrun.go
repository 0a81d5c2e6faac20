// Package daemonrun hosts the daemon process lifecycle shared by the
// nassavd binary and the `nassav daemon run` subcommand.
package daemonrun

import (
	"context"
	"fmt"

	"nassav/internal/config"
	"nassav/internal/daemon"
	"nassav/internal/ipc"
	"nassav/internal/logging"
)

// Run starts the daemon, the HTTP API, and the IPC socket, then blocks
// until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-ctx.Done()
	logger.Info("nassavd shutting down")
	return nil
}
