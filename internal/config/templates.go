package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "server":
		return serverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `address = "127.0.0.1:25575"
password = "changeme"
connect_timeout = "5s"
read_timeout = "15s"
write_timeout = "15s"
max_packet_length = 8192
read_chunk_size = 4096
max_connect_attempts = 3
strict_terminator = false
multi_packet_responses = true
log_level = "info"

[backoff]
initial_delay = "250ms"
multiplier = 2.0
max_delay = "5s"
jitter = true
`

const serverTemplate = `max_packet_length = 8192
log_level = "info"

[server]
listen = "127.0.0.1:25575"
password = "changeme"
idle_timeout = "5m"

[metrics]
listen = "127.0.0.1:9105"
`
