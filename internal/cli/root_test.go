package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrythewa/deskbridge/internal/config"
	"github.com/berrythewa/deskbridge/internal/daemon"
)

type testEnv struct {
	configPath string
	socket     string
}

func setupEnv(t *testing.T) testEnv {
	t.Helper()
	dir, err := os.MkdirTemp("", "dbcli")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	env := testEnv{
		configPath: filepath.Join(dir, "config.yaml"),
		socket:     filepath.Join(dir, "s.sock"),
	}
	t.Setenv("DESKBRIDGE_CONFIG_DIR", dir)
	t.Setenv("DESKBRIDGE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("DESKBRIDGE_SOCKET", env.socket)
	t.Setenv("DESKBRIDGE_LOG_LEVEL", "error")
	t.Setenv("DESKBRIDGE_TIMEOUT", "2s")
	t.Setenv("PROJECTS_DIR", "")
	return env
}

func run(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", env.configPath, "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func startHost(t *testing.T, env testEnv) {
	t.Helper()
	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx, cfg, nil) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return daemon.GetStatus(context.Background(), cfg).State == daemon.StateRunning
	}, 5*time.Second, 20*time.Millisecond)
}

func TestVersionJSON(t *testing.T) {
	env := setupEnv(t)
	SetVersionInfo("1.2.3", "today", "abc")

	out, err := run(t, env, "--json", "version")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc", info["commit"])
}

func TestInvokeList(t *testing.T) {
	env := setupEnv(t)

	out, err := run(t, env, "invoke", "--list")
	require.NoError(t, err)
	for _, name := range []string{"greet", "graphql", "history", "flush_history", "ping"} {
		assert.Contains(t, out, name)
	}
}

func TestConfigInit(t *testing.T) {
	env := setupEnv(t)

	out, err := run(t, env, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, env.configPath)
	assert.FileExists(t, env.configPath)

	_, err = run(t, env, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, env, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigShowAppliesEnvironment(t *testing.T) {
	env := setupEnv(t)

	out, err := run(t, env, "config", "show", "--format", "json")
	require.NoError(t, err)

	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, env.socket, shown.IPC.SocketPath)
}

func TestGreetWithoutHost(t *testing.T) {
	env := setupEnv(t)

	out, err := run(t, env, "greet", "World")
	require.Error(t, err)
	assert.Contains(t, out, "greeting failed (transport")
	assert.Contains(t, out, `""`)
}

func TestCommandsAgainstHost(t *testing.T) {
	env := setupEnv(t)
	startHost(t, env)

	out, err := run(t, env, "greet", "World")
	require.NoError(t, err)
	assert.Equal(t, "greeting succeeded\n  Hello, World!\n", out)

	out, err = run(t, env, "graphql", "{ projects }")
	require.NoError(t, err)
	assert.Equal(t, "records succeeded\n  []\n", out)

	_, err = run(t, env, "graphql", `mutation { createProject(project: "notes") }`)
	require.NoError(t, err)

	out, err = run(t, env, "--json", "invoke", "graphql", "--arg", "query={ projects }")
	require.NoError(t, err)
	var state struct {
		Phase string            `json:"phase"`
		Value []json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "succeeded", state.Phase)
	require.Len(t, state.Value, 1)
	assert.JSONEq(t, `"notes"`, string(state.Value[0]))

	out, err = run(t, env, "invoke", "graphql", "--arg", "query={ entries(project: \"nope\") { id } }")
	require.Error(t, err)
	assert.Contains(t, out, "graphql failed (graphql_error")

	out, err = run(t, env, "history", "list", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "graphql")

	out, err = run(t, env, "--json", "history", "flush", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"kept": 1`)

	out, err = run(t, env, "host", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: running")
}
