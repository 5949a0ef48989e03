package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/config"
	"github.com/berrythewa/deskbridge/internal/ipc"
	"github.com/berrythewa/deskbridge/pkg/format"
)

// Shared variables across all commands
var (
	cfg       *config.Config
	zapLogger *zap.Logger

	useJSON  bool
	noColors bool

	// Whether the config file was present before Load wrote a default one
	existedBefore bool

	stdout io.Writer = os.Stdout
)

// SetConfig sets the configuration for commands
func SetConfig(config *config.Config) {
	cfg = config
}

// SetZapLogger sets the logger for commands
func SetZapLogger(log *zap.Logger) {
	zapLogger = log
}

func GetZapLogger() *zap.Logger {
	if zapLogger == nil {
		return zap.NewNop()
	}
	return zapLogger
}

// SetConfigExisted is called by the root command before loading config
func SetConfigExisted(existed bool) {
	existedBefore = existed
}

// SetOutput sets output flags shared by every command
func SetOutput(w io.Writer, asJSON, plain bool) {
	if w != nil {
		stdout = w
	}
	useJSON = asJSON
	noColors = plain
}

// newInvoker builds the façade over the configured host socket
func newInvoker() *command.Invoker {
	client := ipc.NewClient(ipc.ClientOptions{
		SocketPath: cfg.IPC.SocketPath,
		MaxRetries: cfg.IPC.MaxRetries,
		RetryDelay: cfg.IPC.RetryDelay,
		Logger:     GetZapLogger().Named("ipc"),
	})
	return command.NewInvoker(client, command.Options{
		Timeout: cfg.Invocation.Timeout,
		Logger:  GetZapLogger().Named("command"),
	})
}

func outputOptions() format.Options {
	if noColors || !isTerminal(stdout) {
		return format.PlainOptions()
	}
	return format.DefaultOptions()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseArgs turns key=value pairs into a command argument map. Values that
// parse as JSON keep their JSON type, everything else is a string.
func parseArgs(pairs []string) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			args[key] = decoded
		} else {
			args[key] = value
		}
	}
	return args, nil
}
