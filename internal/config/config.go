package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/danmuck/rconctl/internal/protocol/rcon"
	"github.com/danmuck/rconctl/internal/protocol/session"
	"github.com/hashicorp/go-multierror"
)

// fileConfig is the rconctl.toml key mapping.
type fileConfig struct {
	Address              string        `toml:"address"`
	Password             string        `toml:"password"`
	ConnectTimeout       string        `toml:"connect_timeout"`
	ReadTimeout          string        `toml:"read_timeout"`
	WriteTimeout         string        `toml:"write_timeout"`
	MaxPacketLength      int           `toml:"max_packet_length"`
	ReadChunkSize        int           `toml:"read_chunk_size"`
	MaxConnectAttempts   int           `toml:"max_connect_attempts"`
	StrictTerminator     bool          `toml:"strict_terminator"`
	MultiPacketResponses bool          `toml:"multi_packet_responses"`
	LogLevel             string        `toml:"log_level"`
	Backoff              backoffConfig `toml:"backoff"`
	Server               serverConfig  `toml:"server"`
	Metrics              metricsConfig `toml:"metrics"`
}

type backoffConfig struct {
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
	Jitter       bool    `toml:"jitter"`
}

type serverConfig struct {
	Listen      string `toml:"listen"`
	Password    string `toml:"password"`
	IdleTimeout string `toml:"idle_timeout"`
}

type metricsConfig struct {
	Listen string `toml:"listen"`
}

// Config is the resolved rconctl configuration.
type Config struct {
	Client        session.ClientConfig
	Password      string
	Server        session.ServerConfig
	ServerListen  string
	MetricsListen string
	LogLevel      string
}

func Default() Config {
	server := session.DefaultServerConfig()
	server.Session.ReadTimeout = 5 * time.Minute
	return Config{
		Client:       session.DefaultClientConfig(),
		Server:       server,
		ServerListen: "127.0.0.1:25575",
	}
}

// Load reads path on top of Default. Keys absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load rconctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load rconctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Client.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Client.Session.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Client.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Client.Session.WriteTimeout},
		{"backoff.initial_delay", raw.Backoff.InitialDelay, &cfg.Client.Session.Backoff.InitialDelay},
		{"backoff.max_delay", raw.Backoff.MaxDelay, &cfg.Client.Session.Backoff.MaxDelay},
		{"server.idle_timeout", raw.Server.IdleTimeout, &cfg.Server.Session.ReadTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("max_packet_length") {
		cfg.Client.Session.MaxPacketLength = raw.MaxPacketLength
	}
	if meta.IsDefined("read_chunk_size") {
		cfg.Client.Session.ReadChunkSize = raw.ReadChunkSize
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.Client.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("strict_terminator") {
		cfg.Client.Session.StrictTerminator = raw.StrictTerminator
	}
	if meta.IsDefined("multi_packet_responses") {
		cfg.Client.MultiPacketResponses = raw.MultiPacketResponses
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("backoff", "multiplier") {
		cfg.Client.Session.Backoff.Multiplier = raw.Backoff.Multiplier
	}
	if meta.IsDefined("backoff", "jitter") {
		cfg.Client.Session.Backoff.Jitter = raw.Backoff.Jitter
	}
	if meta.IsDefined("server", "listen") {
		cfg.ServerListen = strings.TrimSpace(raw.Server.Listen)
	}
	if meta.IsDefined("server", "password") {
		cfg.Server.Password = raw.Server.Password
	}
	if meta.IsDefined("metrics", "listen") {
		cfg.MetricsListen = strings.TrimSpace(raw.Metrics.Listen)
	}

	// The server shares the transport limits of the client section.
	idle := cfg.Server.Session.ReadTimeout
	cfg.Server.Session = cfg.Client.Session
	cfg.Server.Session.ReadTimeout = idle

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var result *multierror.Error
	s := cfg.Client.Session

	if addr := strings.TrimSpace(cfg.Client.Address); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			result = multierror.Append(result, fmt.Errorf("address %q: %w", addr, err))
		}
	}
	if s.MaxPacketLength != 0 && s.MaxPacketLength < rcon.MinLength {
		result = multierror.Append(result, fmt.Errorf("max_packet_length must be at least %d", rcon.MinLength))
	}
	if s.ReadChunkSize < 0 {
		result = multierror.Append(result, fmt.Errorf("read_chunk_size must not be negative"))
	}
	if cfg.Client.MaxConnectAttempts < 0 {
		result = multierror.Append(result, fmt.Errorf("max_connect_attempts must not be negative"))
	}
	for key, d := range map[string]time.Duration{
		"connect_timeout":     s.ConnectTimeout,
		"read_timeout":        s.ReadTimeout,
		"write_timeout":       s.WriteTimeout,
		"server.idle_timeout": cfg.Server.Session.ReadTimeout,
	} {
		if d < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must not be negative", key))
		}
	}
	if s.Backoff.Multiplier != 0 && s.Backoff.Multiplier < 1 {
		result = multierror.Append(result, fmt.Errorf("backoff.multiplier must be at least 1"))
	}
	if listen := strings.TrimSpace(cfg.ServerListen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			result = multierror.Append(result, fmt.Errorf("server.listen %q: %w", listen, err))
		}
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			result = multierror.Append(result, fmt.Errorf("log_level %q is not a known level", cfg.LogLevel))
		}
	}
	return result.ErrorOrNil()
}
