package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lattiq/mailrelay"
	"github.com/lattiq/mailrelay/internal/events"
	"github.com/lattiq/mailrelay/internal/server"
)

// FileConfig is the on-disk format read by serve.
type FileConfig struct {
	mailrelay.Config `yaml:",inline"`

	Server server.Config `yaml:"server"`
	Events EventsConfig  `yaml:"events"`

	// ShutdownTimeout bounds the HTTP shutdown and the final queue drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EventsConfig selects where terminal statuses are published.
type EventsConfig struct {
	Kafka *events.KafkaConfig `yaml:"kafka"`
}

// DefaultFileConfig returns the defaults applied before a file is decoded.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Config:          mailrelay.DefaultConfig(),
		Server:          server.DefaultConfig(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// DemoConfig mirrors the classic two-provider setup: two simulated providers
// that each succeed half of the time.
func DemoConfig() FileConfig {
	cfg := DefaultFileConfig()
	cfg.Providers = []mailrelay.ProviderConfig{
		{Name: "provider1", Type: mailrelay.ProviderSimulated},
		{Name: "provider2", Type: mailrelay.ProviderSimulated},
	}
	return cfg
}

// LoadFileConfig reads path, or returns DemoConfig when path is empty.
func LoadFileConfig(path string) (FileConfig, error) {
	if path == "" {
		return DemoConfig(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the --config flag
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultFileConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
