//go:build !windows

package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/config"
)

// LogFileName receives the detached host's stdout and stderr
const LogFileName = "deskbridge_host.log"

// Detach re-executes executable with args in a new session and returns the
// child's PID. The child writes its own PID file once it is serving.
func Detach(cfg *config.Config, executable string, args []string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logDir := cfg.SystemPaths.LogDir
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile := filepath.Join(logDir, LogFileName)
	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	// Remove the --detach flag to prevent infinite recursion
	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "--detach" && arg != "--detach=true" {
			filtered = append(filtered, arg)
		}
	}

	cmd := exec.Command(executable, filtered...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.Env = append(os.Environ(), "DESKBRIDGE_DETACHED=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	logger.Info("Starting detached host",
		zap.String("executable", executable),
		zap.Strings("args", filtered),
		zap.String("log_file", logFile))

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start host process: %w", err)
	}
	pid := cmd.Process.Pid

	// Detach the process so it is not reaped with us
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release host process: %w", err)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func terminate(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
