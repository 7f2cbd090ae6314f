package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/danmuck/rconctl/internal/observability"
	"github.com/danmuck/rconctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "rconctl",
		Usage:           "talk to game servers over RCON",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to rconctl.toml", EnvVars: []string{"RCONCTL_CONFIG"}},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "server host:port"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "rcon password", EnvVars: []string{"RCONCTL_PASSWORD"}},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "overall deadline for exec"},
		},
		Before: func(c *cli.Context) error {
			logging.ConfigureRuntime()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "exec",
				Aliases:   []string{"e"},
				Usage:     "run one command and print the response",
				ArgsUsage: "<command...>",
				Action:    runExec,
			},
			{
				Name:   "shell",
				Usage:  "run commands read line by line from stdin",
				Action: runShell,
			},
			{
				Name:  "serve",
				Usage: "run a local RCON server with a small built-in console",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen host:port"},
					&cli.StringFlag{Name: "metrics-listen", Usage: "serve Prometheus metrics on host:port"},
				},
				Action: runServe,
			},
		},
	}
}

// resolveConfig layers flags over the optional config file.
func resolveConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if c.IsSet("address") {
		cfg.Client.Address = strings.TrimSpace(c.String("address"))
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
		cfg.Server.Password = c.String("password")
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	logging.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func connect(ctx context.Context, cfg config.Config) (*session.Client, error) {
	client, err := session.Dial(ctx, cfg.Client)
	if err != nil {
		return nil, err
	}
	if err := client.Authenticate(ctx, cfg.Password); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runExec(c *cli.Context) error {
	command := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(command) == "" {
		return errors.New("exec: command required")
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	out, err := client.Execute(ctx, command)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func runShell(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	client, err := connect(c.Context, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
		out, err := client.Execute(ctx, line)
		cancel()
		if err != nil {
			return fmt.Errorf("shell: %q: %w", line, err)
		}
		fmt.Fprintln(c.App.Writer, out)
	}
	return scanner.Err()
}

func runServe(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		cfg.ServerListen = c.String("listen")
	}
	if c.IsSet("metrics-listen") {
		cfg.MetricsListen = c.String("metrics-listen")
	}
	if cfg.Server.Password == "" {
		cfg.Server.Password = cfg.Password
	}
	if cfg.Server.Password == "" {
		return errors.New("serve: password required")
	}

	ln, err := net.Listen("tcp", cfg.ServerListen)
	if err != nil {
		return err
	}
	if cfg.MetricsListen != "" {
		metrics := &http.Server{Addr: cfg.MetricsListen, Handler: observability.Handler()}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Msgf("rconctl.serve metrics err=%v", err)
			}
		}()
		defer metrics.Close()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msgf("rconctl.serve listening addr=%s", ln.Addr())
	srv := session.NewServer(cfg.Server, consoleHandler(time.Now()))
	return srv.Serve(ctx, ln)
}

func consoleHandler(started time.Time) session.HandlerFunc {
	return func(_ context.Context, command string) (string, error) {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return "", nil
		}
		switch strings.ToLower(fields[0]) {
		case "echo", "say":
			return strings.Join(fields[1:], " "), nil
		case "ping":
			return "pong", nil
		case "uptime":
			return time.Since(started).Truncate(time.Second).String(), nil
		case "help":
			return "commands: echo, say, ping, uptime, help", nil
		default:
			return "", fmt.Errorf("unknown command %q", fields[0])
		}
	}
}
