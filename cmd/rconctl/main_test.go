package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/danmuck/rconctl/internal/protocol/session"
	"github.com/danmuck/rconctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func startConsole(t *testing.T, password string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := config.Default()
	cfg.Server.Password = password
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- session.NewServer(cfg.Server, consoleHandler(time.Now())).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"rconctl"}, args...))
	return out.String(), err
}

func TestExecPrintsResponse(t *testing.T) {
	testlog.Start(t)
	addr := startConsole(t, "pw")
	out, err := runApp(t, "", "--address", addr, "--password", "pw", "exec", "echo", "hello", "world")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "hello world\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExecWrongPassword(t *testing.T) {
	testlog.Start(t)
	addr := startConsole(t, "pw")
	if _, err := runApp(t, "", "--address", addr, "--password", "nope", "exec", "ping"); err == nil {
		t.Fatalf("expected auth failure")
	}
}

func TestExecRequiresCommand(t *testing.T) {
	testlog.Start(t)
	if _, err := runApp(t, "", "--address", "127.0.0.1:1", "exec"); err == nil {
		t.Fatalf("expected missing command error")
	}
}

func TestShellRunsEachLine(t *testing.T) {
	testlog.Start(t)
	addr := startConsole(t, "pw")
	out, err := runApp(t, "ping\n\necho a b\nquit\necho never\n", "--address", addr, "--password", "pw", "shell")
	if err != nil {
		t.Fatalf("shell: %v", err)
	}
	if out != "pong\na b\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConsoleHandler(t *testing.T) {
	h := consoleHandler(time.Now())
	if out, err := h(context.Background(), "help"); err != nil || !strings.Contains(out, "uptime") {
		t.Fatalf("unexpected help: %q %v", out, err)
	}
	if _, err := h(context.Background(), "rm -rf"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if out, err := h(context.Background(), "  "); err != nil || out != "" {
		t.Fatalf("unexpected blank output: %q %v", out, err)
	}
}

func writeLogConfig(t *testing.T, level string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rconctl.toml")
	if err := os.WriteFile(path, []byte("log_level = \""+level+"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestExecKeepsEnvLogLevel(t *testing.T) {
	testlog.Start(t)
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	addr := startConsole(t, "pw")

	t.Setenv(logging.EnvLogLevel, "error")
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	if _, err := runApp(t, "", "--address", addr, "--password", "pw", "exec", "ping"); err != nil {
		t.Fatalf("exec without config: %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.ErrorLevel {
		t.Fatalf("env level lost without config: %v", got)
	}

	path := writeLogConfig(t, "debug")
	if _, err := runApp(t, "", "--config", path, "--address", addr, "--password", "pw", "exec", "ping"); err != nil {
		t.Fatalf("exec with config: %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.ErrorLevel {
		t.Fatalf("env level lost to config file: %v", got)
	}
}

func TestExecAppliesConfigLogLevel(t *testing.T) {
	testlog.Start(t)
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	addr := startConsole(t, "pw")

	t.Setenv(logging.EnvLogLevel, "")
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	path := writeLogConfig(t, "warn")
	if _, err := runApp(t, "", "--config", path, "--address", addr, "--password", "pw", "exec", "ping"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.WarnLevel {
		t.Fatalf("unexpected level: %v", got)
	}
}
