package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/config"
	"github.com/berrythewa/deskbridge/internal/dal"
	"github.com/berrythewa/deskbridge/internal/gql"
	"github.com/berrythewa/deskbridge/internal/host"
	"github.com/berrythewa/deskbridge/internal/ipc"
	"github.com/berrythewa/deskbridge/internal/storage"
	"github.com/berrythewa/deskbridge/pkg/utils"
)

// Host states reported by GetStatus
const (
	StateRunning      = "running"
	StateStopped      = "stopped"
	StateUnresponsive = "unresponsive"
)

var (
	ErrAlreadyRunning = errors.New("host is already running")
	ErrNotRunning     = errors.New("host is not running")
)

// Status describes the host process as seen from a client
type Status struct {
	State   string        `json:"status"`
	PID     int           `json:"pid,omitempty"`
	Socket  string        `json:"socket"`
	Latency time.Duration `json:"latency,omitempty"`
}

// Run serves the host in the foreground until ctx is cancelled or the process
// receives SIGINT/SIGTERM.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := cfg.SystemPaths
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	if pid, err := ReadPID(paths.PIDFile); err == nil && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, pid)
	}
	if err := writePID(paths.PIDFile, os.Getpid()); err != nil {
		return err
	}
	defer os.Remove(paths.PIDFile)

	// Stores are closed by the shutdown goroutine once serving stops, or
	// here when startup fails before that
	var stores []io.Closer
	started := false
	defer func() {
		if !started {
			closeStores(stores, logger)
		}
	}()

	store, err := dal.New(paths.ProjectsDir, logger.Named("dal"))
	if err != nil {
		return fmt.Errorf("failed to open project store: %w", err)
	}
	stores = append(stores, store)

	schema, err := gql.NewSchema(store, logger.Named("gql"))
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	opts := host.Options{Schema: schema, Logger: logger.Named("host")}
	if cfg.Journal.Enabled {
		journal, err := storage.OpenJournal(storage.JournalConfig{
			DBPath:     paths.JournalFile,
			MaxRecords: cfg.Journal.MaxRecords,
			Logger:     logger.Named("journal"),
		})
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		stores = append(stores, journal)
		opts.Journal = journal
	}
	h := host.New(opts)

	srv := ipc.NewServer(cfg.IPC.SocketPath, h.Handle, logger.Named("ipc"))
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	logger.Info("Host started",
		zap.String("hostname", utils.GetHostname()),
		zap.Int("pid", os.Getpid()),
		zap.String("socket", cfg.IPC.SocketPath),
		zap.String("projects_dir", paths.ProjectsDir),
		zap.Bool("journal", cfg.Journal.Enabled))

	started = true
	served := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(served)
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		// Handlers may touch the stores until Serve has drained every connection
		<-served
		logger.Info("Closing stores")
		return closeStores(stores, logger)
	})

	err = g.Wait()
	logger.Info("Host stopped", zap.Error(err))
	return err
}

// closeStores closes in reverse opening order and joins the errors
func closeStores(stores []io.Closer, logger *zap.Logger) error {
	var errs []error
	for i := len(stores) - 1; i >= 0; i-- {
		if err := stores[i].Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close stores: %w", errors.Join(errs...))
	}
	return nil
}

// Stop asks the host recorded in pidFile to shut down and waits up to
// timeout for it to exit.
func Stop(pidFile string, timeout time.Duration) error {
	pid, err := ReadPID(pidFile)
	if err != nil {
		return err
	}
	if !processAlive(pid) {
		os.Remove(pidFile)
		return fmt.Errorf("%w (stale PID %d)", ErrNotRunning, pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := terminate(proc); err != nil {
		return fmt.Errorf("failed to signal process: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("host (PID %d) did not exit within %v", pid, timeout)
}

// Kill force-stops the host recorded in pidFile.
func Kill(pidFile string) error {
	pid, err := ReadPID(pidFile)
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill process: %w", err)
	}
	os.Remove(pidFile)
	return nil
}

// GetStatus pings the host over the socket. The PID file is only used to
// tell a stopped host from a hung one.
func GetStatus(ctx context.Context, cfg *config.Config) Status {
	status := Status{State: StateStopped, Socket: cfg.IPC.SocketPath}
	if pid, err := ReadPID(cfg.SystemPaths.PIDFile); err == nil && processAlive(pid) {
		status.PID = pid
	}

	client := ipc.NewClient(ipc.ClientOptions{SocketPath: cfg.IPC.SocketPath, MaxRetries: 1})
	inv := command.NewInvoker(client, command.Options{Timeout: 2 * time.Second})

	start := time.Now()
	if err := inv.Ping(ctx); err != nil {
		if status.PID > 0 {
			status.State = StateUnresponsive
		}
		return status
	}
	status.State = StateRunning
	status.Latency = time.Since(start)
	return status
}

// ReadPID parses the PID file
func ReadPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w (no PID file)", ErrNotRunning)
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", string(data))
	}
	return pid, nil
}

func writePID(pidFile string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}
