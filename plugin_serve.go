// plugin_serve.go: plugin-side gRPC server on a unix socket or TCP port
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

var errServerStarted = stderrors.New("server already started")

// Server hosts one plugin over gRPC. A Server serves once.
//
// Serve blocks until its context is cancelled or the listener fails. On
// cancellation the server stops accepting connections, waits for every
// in-flight call to finish and, for unix sockets, removes the socket file.
type Server struct {
	adapter     *Adapter
	logger      Logger
	tracker     *RequestTracker
	grpcOptions []grpc.ServerOption
	health      *bool

	mu       sync.Mutex
	listener net.Listener
	started  bool
	ready    chan struct{}
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = NewLogger(logger)
	}
}

// WithServerOptions appends options passed to grpc.NewServer.
func WithServerOptions(opts ...grpc.ServerOption) ServerOption {
	return func(s *Server) {
		s.grpcOptions = append(s.grpcOptions, opts...)
	}
}

// WithHealthService turns the grpc.health.v1 service on or off. It takes
// precedence over ServeConfig.HealthService.
func WithHealthService(enabled bool) ServerOption {
	return func(s *Server) {
		s.health = &enabled
	}
}

// NewServer creates a server for plugin.
func NewServer(plugin Plugin, opts ...ServerOption) *Server {
	s := &Server{
		adapter: NewAdapter(plugin),
		logger:  DefaultLogger(),
		tracker: NewRequestTracker(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tracker exposes the in-flight call counters.
func (s *Server) Tracker() *RequestTracker {
	return s.tracker
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready is closed.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve validates config, binds the listener and serves until ctx is done.
// Configuration problems are reported before any filesystem or network
// access.
func (s *Server) Serve(ctx context.Context, config ServeConfig) error {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}
	network, _ := ParseNetworkType(string(config.Network))

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return NewServeError(errServerStarted)
	}
	s.started = true
	s.mu.Unlock()

	listener, err := s.listen(network, config.Address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	grpcServer := s.newGRPCServer(config)
	var healthServer *health.Server
	healthEnabled := config.HealthServiceEnabled()
	if s.health != nil {
		healthEnabled = *s.health
	}
	if healthEnabled {
		healthServer = health.NewServer()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthServer)
	}

	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := grpcServer.Serve(listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			return NewServeError(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down plugin server",
			"in_flight", s.tracker.GetAllActiveRequests(),
			"last_request", s.tracker.LastRequestTime())
		if healthServer != nil {
			healthServer.Shutdown()
		}
		start := time.Now()
		grpcServer.GracefulStop()
		s.logger.Info("Plugin server drained",
			"duration", time.Since(start),
			"completed_calls", s.tracker.GetCompleted())
		return nil
	})

	serveErr := g.Wait()

	if network == NetworkUnix {
		s.removeSocket(config.Address)
	}
	if serveErr != nil {
		s.logger.Error("Plugin server failed", "error", serveErr)
		return serveErr
	}
	s.logger.Info("Plugin server stopped")
	return nil
}

// listen binds the listener for network. For unix sockets any existing
// filesystem object at address is removed first.
func (s *Server) listen(network NetworkType, address string) (net.Listener, error) {
	switch network {
	case NetworkUnix:
		if _, err := os.Lstat(address); err == nil {
			s.logger.Warn("Removing existing socket file", "path", address)
			if err := os.Remove(address); err != nil {
				return nil, NewBindError(network, address, err)
			}
		}
		listener, err := net.Listen("unix", address)
		if err != nil {
			return nil, NewBindError(network, address, err)
		}
		s.logger.Info("Listening on Unix socket", "path", address)
		return listener, nil

	case NetworkTCP:
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return nil, NewBindError(network, address, err)
		}
		s.logger.Info("Listening on TCP", "address", listener.Addr().String())
		return listener, nil

	default:
		return nil, NewUnsupportedNetworkError(string(network))
	}
}

func (s *Server) removeSocket(path string) {
	s.logger.Info("Cleaning up socket file", "path", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove socket file", "path", path, "error", err)
	}
}

func (s *Server) newGRPCServer(config ServeConfig) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.MaxRecvMsgSize(config.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(config.MaxSendMsgSize),
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(s.logger),
			s.trackingInterceptor,
			s.loggingInterceptor,
			statusInterceptor,
		),
	}
	opts = append(opts, s.grpcOptions...)

	grpcServer := grpc.NewServer(opts...)
	RegisterPluginServiceServer(grpcServer, s.adapter)
	return grpcServer
}

func (s *Server) trackingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	s.tracker.StartRequest(info.FullMethod)
	defer s.tracker.EndRequest(info.FullMethod)
	return handler(ctx, req)
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	logger := s.logger.With("method", info.FullMethod, "call_id", uuid.NewString())
	ctx = ContextWithLogger(ctx, logger)

	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Warn("Plugin call failed",
			"duration", time.Since(start),
			"code", status.Code(ToStatus(err)).String(),
			"error", err)
		return resp, err
	}
	logger.Debug("Plugin call completed", "duration", time.Since(start))
	return resp, nil
}

// statusInterceptor runs closest to the plugin and converts its errors into
// gRPC statuses.
func statusInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, ToStatus(err)
	}
	return resp, nil
}
