package session

import (
	"time"

	"github.com/danmuck/rconctl/internal/auth"
)

const (
	DefaultMaxPacketLength = 8192
	DefaultReadChunkSize   = 4096
	// MaxResponseBody is the largest body a server puts in one
	// ResponseValue packet before splitting.
	MaxResponseBody = 4096
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines transport defaults shared by clients and servers.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// MaxPacketLength caps the declared length field accepted from a peer.
	MaxPacketLength int
	ReadChunkSize   int
	// StrictTerminator rejects packets whose second terminator is not 0x00.
	StrictTerminator bool
	Backoff          BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		MaxPacketLength: DefaultMaxPacketLength,
		ReadChunkSize:   DefaultReadChunkSize,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxPacketLength <= 0 {
		c.MaxPacketLength = def.MaxPacketLength
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = def.ReadChunkSize
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}

// ClientConfig configures Dial.
type ClientConfig struct {
	Address            string
	Session            Config
	MaxConnectAttempts int
	// MultiPacketResponses makes Execute send an empty ResponseValue after
	// each command and read until it echoes back.
	MultiPacketResponses bool
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Session:              DefaultConfig(),
		MaxConnectAttempts:   3,
		MultiPacketResponses: true,
	}
}

// ServerConfig configures Server.
type ServerConfig struct {
	Password string
	// Validator overrides Password when set.
	Validator auth.Validator
	Session   Config
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{Session: DefaultConfig()}
}
