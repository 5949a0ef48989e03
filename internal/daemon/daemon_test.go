package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/config"
	"github.com/berrythewa/deskbridge/internal/ipc"
	"github.com/berrythewa/deskbridge/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("os/signal.loop"))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "dbhost")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := &config.Config{}
	cfg.SystemPaths = config.ConfigPaths{
		BaseDir:     dir,
		ConfigFile:  filepath.Join(dir, "config.yaml"),
		DataDir:     dir,
		ProjectsDir: filepath.Join(dir, "projects"),
		JournalFile: filepath.Join(dir, "journal.db"),
		PIDFile:     filepath.Join(dir, "run", "host.pid"),
		LogDir:      filepath.Join(dir, "logs"),
	}
	cfg.IPC.SocketPath = filepath.Join(dir, "s.sock")
	cfg.Journal.Enabled = true
	return cfg
}

func startHost(t *testing.T, cfg *config.Config) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, nil) }()

	require.Eventually(t, func() bool {
		return GetStatus(context.Background(), cfg).State == StateRunning
	}, 5*time.Second, 20*time.Millisecond)
	return cancel, done
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	cancel, done := startHost(t, cfg)

	pid, err := ReadPID(cfg.SystemPaths.PIDFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	status := GetStatus(context.Background(), cfg)
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, os.Getpid(), status.PID)

	inv := command.NewInvoker(ipc.NewClient(ipc.ClientOptions{SocketPath: cfg.IPC.SocketPath}), command.Options{})
	greeting, err := inv.Greet(context.Background(), "World")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", greeting)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop")
	}

	assert.NoFileExists(t, cfg.SystemPaths.PIDFile)
	assert.NoFileExists(t, cfg.IPC.SocketPath)
	assert.Equal(t, StateStopped, GetStatus(context.Background(), cfg).State)
}

func TestShutdownReleasesStoresWithIdleClient(t *testing.T) {
	cfg := testConfig(t)
	cancel, done := startHost(t, cfg)

	conn, err := net.Dial("unix", cfg.IPC.SocketPath)
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop with an idle client connected")
	}

	// bbolt holds an exclusive file lock until the journal is closed
	journal, err := storage.OpenJournal(storage.JournalConfig{DBPath: cfg.SystemPaths.JournalFile})
	require.NoError(t, err)
	assert.Positive(t, journal.Count())
	require.NoError(t, journal.Close())
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	cancel, done := startHost(t, cfg)
	defer func() {
		cancel()
		<-done
	}()

	// A live PID that is not ours
	require.NoError(t, os.WriteFile(cfg.SystemPaths.PIDFile, []byte(strconv.Itoa(os.Getppid())), 0644))

	err := Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.pid")

	_, err := ReadPID(path)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err = ReadPID(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0644))
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)
}

func TestStopWithoutHost(t *testing.T) {
	cfg := testConfig(t)
	err := Stop(cfg.SystemPaths.PIDFile, time.Second)
	assert.ErrorIs(t, err, ErrNotRunning)
}
