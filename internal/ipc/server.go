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
	"strings"
	"sync"
	"time"

	"switchscan/internal/logging"
	"switchscan/internal/messenger"
	"switchscan/internal/services"
)

const statusTimeout = 2 * time.Second

// Backend is the app surface served over the socket.
type Backend interface {
	Status(ctx context.Context) (messenger.Status, error)
	Threads() []messenger.ThreadInfo
	Say(text string)
	Halt()
	Signal(action string) error
	Stop() error
}

// Server exposes app control via JSON-RPC over a Unix domain socket.
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
func NewServer(ctx context.Context, path string, backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("ipc server requires a backend")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{backend: backend, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var conns sync.WaitGroup
		defer conns.Wait()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart switchscan if needed"))
				continue
			}
			conns.Add(1)
			go func(c net.Conn) {
				defer conns.Done()
				stop := context.AfterFunc(s.ctx, func() { _ = c.Close() })
				defer stop()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Path returns the socket location.
func (s *Server) Path() string { return s.path }

// Close stops the server, drops open connections, and removes the socket
// file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	backend Backend
	logger  *slog.Logger
	ctx     context.Context
}

// scope attaches the request id to the context and logger.
func (s *service) scope(requestID string) (context.Context, *slog.Logger) {
	ctx := s.ctx
	if requestID = strings.TrimSpace(requestID); requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	ctx, logger := s.scope(req.RequestID)
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	status, err := s.backend.Status(ctx)
	resp.RequestID = req.RequestID
	resp.Status = status
	if err != nil {
		logger.Debug("status incomplete", logging.Error(err))
		return err
	}
	return nil
}

func (s *service) Threads(req ThreadsRequest, resp *ThreadsResponse) error {
	resp.RequestID = req.RequestID
	resp.Threads = s.backend.Threads()
	return nil
}

func (s *service) Say(req SayRequest, resp *SayResponse) error {
	_, logger := s.scope(req.RequestID)
	resp.RequestID = req.RequestID
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("say requires text")
	}
	s.backend.Say(req.Text)
	resp.Queued = true
	logger.Debug("narration requested via IPC",
		logging.String(logging.FieldEventType, "ipc_say"),
		logging.Int("length", len(req.Text)))
	return nil
}

func (s *service) Halt(req HaltRequest, resp *HaltResponse) error {
	resp.RequestID = req.RequestID
	s.backend.Halt()
	return nil
}

func (s *service) Signal(req SignalRequest, resp *SignalResponse) error {
	_, logger := s.scope(req.RequestID)
	resp.RequestID = req.RequestID
	if err := s.backend.Signal(req.Action); err != nil {
		return err
	}
	resp.Accepted = true
	logger.Debug("scan action injected",
		logging.String(logging.FieldEventType, "ipc_signal"),
		logging.String("action", req.Action))
	return nil
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	_, logger := s.scope(req.RequestID)
	resp.RequestID = req.RequestID
	if err := s.backend.Stop(); err != nil {
		return err
	}
	resp.Stopped = true
	logger.Info("stop requested via IPC",
		logging.String(logging.FieldEventType, "ipc_stop"))
	return nil
}
