package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// Default socket path for Unix systems
	DefaultSocketPath = "/tmp/deskbridge.sock"

	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond

	// RequestReadTimeout bounds how long a connection may take to send its request
	RequestReadTimeout = 5 * time.Second
)

// ErrUnsupportedPlatform is returned where Unix domain sockets are unavailable.
var ErrUnsupportedPlatform = errors.New("IPC not implemented for Windows yet")

// Handler answers one request. The context is cancelled when the request
// deadline passes or the server shuts down.
type Handler func(ctx context.Context, req *Request) *Response

// ClientOptions configures a Client.
type ClientOptions struct {
	SocketPath string
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Client sends requests to the host over the socket, one connection per request.
type Client struct {
	socketPath string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	dialer     net.Dialer
}

// NewClient creates a new IPC client
func NewClient(opts ClientOptions) *Client {
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		socketPath: opts.SocketPath,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Send connects to the host, sends a request, and returns the response.
// Only connection failures are retried: once the request is written the
// host may already be acting on it.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if runtime.GOOS == "windows" {
		return nil, ErrUnsupportedPlatform
	}

	var conn net.Conn
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}
		var err error
		conn, err = c.dialer.DialContext(ctx, "unix", c.socketPath)
		if err == nil {
			break
		}
		lastErr = err
		c.logger.Debug("Failed to connect to host",
			zap.String("socket", c.socketPath),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if conn == nil {
		return nil, fmt.Errorf("failed to connect to host after %d attempts: %w", c.maxRetries, lastErr)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// Unblock reads and writes as soon as the caller gives up
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	resp, err := roundTrip(conn, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func roundTrip(conn net.Conn, req *Request) (*Response, error) {
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Server accepts connections on a Unix socket and answers each with Handler.
type Server struct {
	socketPath  string
	handler     Handler
	logger      *zap.Logger
	readTimeout time.Duration

	wg sync.WaitGroup
}

// NewServer creates an IPC server bound to socketPath once started.
func NewServer(socketPath string, handler Handler, logger *zap.Logger) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		socketPath:  socketPath,
		handler:     handler,
		logger:      logger,
		readTimeout: RequestReadTimeout,
	}
}

// ListenAndServe starts the IPC server and blocks until ctx is cancelled.
// In-flight connections are drained before it returns.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen binds the socket, replacing any stale one.
func (s *Server) Listen() (net.Listener, error) {
	if runtime.GOOS == "windows" {
		return nil, ErrUnsupportedPlatform
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	// Remove any stale socket
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	return ln, nil
}

// Serve accepts connections from ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer os.Remove(s.socketPath)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(serveCtx, func() {
		ln.Close()
	})
	defer stop()

	s.logger.Info("IPC server listening", zap.String("socket", s.socketPath))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if serveCtx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				cancel()
				s.wg.Wait()
				return fmt.Errorf("listener closed: %w", err)
			}
			s.logger.Warn("Failed to accept connection", zap.Error(err))
			continue // Accept next connection
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(serveCtx, conn)
		}()
	}

	s.wg.Wait()
	s.logger.Info("IPC server stopped", zap.String("socket", s.socketPath))
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	// A client that never finishes its request must not hold up shutdown
	release := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	var req Request
	err := dec.Decode(&req)
	if !release() {
		s.logger.Debug("Dropped connection on shutdown")
		return
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			s.logger.Debug("Timed out reading request", zap.Error(err))
			return
		}
		s.logger.Debug("Rejected malformed request", zap.Error(err))
		enc.Encode(NewErrorResponse("", CodeInvalidRequest, "invalid request: "+err.Error()))
		return
	}
	conn.SetReadDeadline(time.Time{})

	reqCtx := ctx
	if deadline, ok := req.Deadline(); ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
		conn.SetWriteDeadline(deadline.Add(time.Second))
	}

	resp := s.handler(reqCtx, &req)
	if resp == nil {
		resp = NewErrorResponse(req.ID, CodeHandlerError, "no response from handler")
	}
	if resp.ID == "" {
		resp.ID = req.ID
	}
	if err := enc.Encode(resp); err != nil {
		s.logger.Debug("Failed to write response",
			zap.String("id", req.ID),
			zap.String("command", req.Command),
			zap.Error(err))
	}
}
