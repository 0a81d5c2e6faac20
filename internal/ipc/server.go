package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"nassav/internal/daemon"
	"nassav/internal/logging"
)

// ErrUnknownTask is returned over the wire for lookups against unknown ids.
var ErrUnknownTask = errors.New("unknown task")

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Nassav", &service{daemon: d}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket", logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
}

func (s *service) Fetch(req FetchRequest, resp *FetchResponse) error {
	result, err := s.daemon.Fetch(req.Keys)
	if err != nil {
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	resp.Result = s.daemon.StopAll()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Orchestrator = status.Orchestrator
	resp.StateFilePath = status.StateFilePath
	resp.LockFilePath = status.LockFilePath
	return nil
}

func (s *service) TaskList(_ TaskListRequest, resp *TaskListResponse) error {
	resp.Tasks = s.daemon.Tasks()
	return nil
}

func (s *service) TaskDescribe(req TaskDescribeRequest, resp *TaskDescribeResponse) error {
	rec, ok := s.daemon.Task(req.ID)
	if !ok {
		return ErrUnknownTask
	}
	resp.Task = rec
	return nil
}

func (s *service) TaskLogs(req TaskLogsRequest, resp *TaskLogsResponse) error {
	entries, ok := s.daemon.TaskLogs(req.ID, req.AfterSeq)
	if !ok {
		return ErrUnknownTask
	}
	resp.Entries = entries
	return nil
}
