package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
)

// WatcherStatus is the snapshot a backend reports over IPC.
type WatcherStatus struct {
	SignedIn      bool
	Email         string
	Connected     bool
	ChannelState  string
	SessionDBPath string
	LockPath      string
}

// Backend is the watcher surface the IPC server exposes. It is an interface
// so the server does not depend on the watcher package.
type Backend interface {
	Status(ctx context.Context) WatcherStatus
	Jobs(kinds []jobstore.Kind) []jobstore.Record
	Job(kind jobstore.Kind, id string) (jobstore.Record, bool)
	ClearJob(kind jobstore.Kind, id string) bool
	SignIn(ctx context.Context, email, token, deviceID string) error
	SignOut(ctx context.Context) error
	TestNotification(ctx context.Context) (bool, string, error)
	Version() string
}

// Server exposes watcher control via JSON-RPC over a Unix domain socket.
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
		return nil, errors.New("ipc server requires backend")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{backend: backend, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Podwatch", srv); err != nil {
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
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	backend Backend
	logger  *slog.Logger
	ctx     context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertRecord(record jobstore.Record) Job {
	return Job{
		ID:          record.ID,
		Kind:        string(record.Kind),
		Status:      string(record.Status),
		Title:       record.Title,
		Error:       record.Error,
		ArtifactURL: record.ArtifactURL,
		Seq:         record.Seq,
		ReceivedAt:  record.ReceivedAt,
	}
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	resp.Version = s.backend.Version()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.backend.Status(s.ctx)
	resp.PID = os.Getpid()
	resp.SignedIn = status.SignedIn
	resp.Email = status.Email
	resp.Connected = status.Connected
	resp.ChannelState = status.ChannelState
	resp.SessionDBPath = status.SessionDBPath
	resp.LockPath = status.LockPath

	jobs := s.backend.Jobs(nil)
	resp.JobCount = len(jobs)
	resp.Conversions = make(map[string]int)
	resp.Podcasts = make(map[string]int)
	for _, record := range jobs {
		switch record.Kind {
		case jobstore.KindConversion:
			resp.Conversions[string(record.Status)]++
		case jobstore.KindPodcast:
			resp.Podcasts[string(record.Status)]++
		}
	}
	return nil
}

func (s *service) Jobs(req JobsRequest, resp *JobsResponse) error {
	kinds := make([]jobstore.Kind, 0, len(req.Kinds))
	for _, raw := range req.Kinds {
		kind, ok := jobstore.ParseKind(raw)
		if !ok {
			return fmt.Errorf("unknown job kind %q", raw)
		}
		kinds = append(kinds, kind)
	}
	records := s.backend.Jobs(kinds)
	resp.Jobs = make([]Job, 0, len(records))
	for _, record := range records {
		resp.Jobs = append(resp.Jobs, convertRecord(record))
	}
	return nil
}

func (s *service) Job(req JobRequest, resp *JobResponse) error {
	kind, ok := jobstore.ParseKind(req.Kind)
	if !ok {
		return fmt.Errorf("unknown job kind %q", req.Kind)
	}
	if req.ID == "" {
		return errors.New("job id is required")
	}
	record, found := s.backend.Job(kind, req.ID)
	if !found {
		return fmt.Errorf("no cached status for %s job %q", kind, req.ID)
	}
	resp.Job = convertRecord(record)
	return nil
}

func (s *service) ClearJob(req ClearJobRequest, resp *ClearJobResponse) error {
	kind, ok := jobstore.ParseKind(req.Kind)
	if !ok {
		return fmt.Errorf("unknown job kind %q", req.Kind)
	}
	if req.ID == "" {
		return errors.New("job id is required")
	}
	resp.Removed = s.backend.ClearJob(kind, req.ID)
	if resp.Removed {
		s.log().Info("cleared cached job status",
			logging.String(logging.FieldJobKind, string(kind)),
			logging.String(logging.FieldJobID, req.ID))
	}
	return nil
}

func (s *service) SignIn(req SignInRequest, resp *SignInResponse) error {
	if req.Token == "" {
		return errors.New("session token is required")
	}
	if err := s.backend.SignIn(s.ctx, req.Email, req.Token, req.DeviceID); err != nil {
		return err
	}
	resp.SignedIn = true
	s.log().Info("session installed via IPC", logging.String("email", req.Email))
	return nil
}

func (s *service) SignOut(_ SignOutRequest, resp *SignOutResponse) error {
	if err := s.backend.SignOut(s.ctx); err != nil {
		return err
	}
	resp.SignedOut = true
	s.log().Info("session ended via IPC")
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.backend.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
