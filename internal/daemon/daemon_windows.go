//go:build windows

package daemon

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/config"
)

// LogFileName receives the detached host's stdout and stderr
const LogFileName = "deskbridge_host.log"

// ErrDetachUnsupported is returned because the host socket is Unix-only
var ErrDetachUnsupported = errors.New("detached host is not supported on Windows")

// Detach is unsupported on Windows
func Detach(cfg *config.Config, executable string, args []string, logger *zap.Logger) (int, error) {
	return 0, ErrDetachUnsupported
}

func processAlive(pid int) bool {
	// FindProcess opens a handle and fails for exited processes on Windows
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}

func terminate(proc *os.Process) error {
	return proc.Kill()
}
