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

	"github.com/lattiq/mailrelay"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(Options{Out: &out, Err: &out})
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Lattiq Mail Relay")
}

func TestVersionCommand_JSON(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(Options{Out: &out, Err: &out})
	root.SetArgs([]string{"version", "-o", "json"})

	require.NoError(t, root.Execute())
	var info mailrelay.VersionInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, mailrelay.Version, info.Version)
}

func TestVersionCommand_BadFormat(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(Options{Out: &out, Err: &out})
	root.SetArgs([]string{"version", "-o", "xml"})

	assert.Error(t, root.Execute())
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - name: primary
    type: simulated
    settings:
      success_rate: "1"
retry:
  max_retries: 2
server:
  addr: 127.0.0.1:8025
  requests_per_second: 50
events:
  kafka:
    brokers: [kafka-1:9092, kafka-2:9092]
    topic: mail-status
shutdown_timeout: 5s
`), 0o600))

	cfg, err := LoadFileConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "primary", cfg.Providers[0].Name)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 10, cfg.RateLimit.MaxPerMinute)
	assert.Equal(t, "127.0.0.1:8025", cfg.Server.Addr)
	assert.Equal(t, 50.0, cfg.Server.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	require.NotNil(t, cfg.Events.Kafka)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFileConfig_Demo(t *testing.T) {
	cfg, err := LoadFileConfig("")
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "provider1", cfg.Providers[0].Name)
	assert.Equal(t, mailrelay.ProviderSimulated, cfg.Providers[1].Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileConfig_Errors(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: 12\nunknown: true\n"), 0o600))
	_, err = LoadFileConfig(path)
	assert.Error(t, err)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	cfg := DemoConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Monitoring.Logging.Output = "stderr"
	cfg.ShutdownTimeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Serve(ctx, cfg))
}

func TestServe_InvalidConfig(t *testing.T) {
	cfg := DefaultFileConfig()
	cfg.Monitoring.Logging.Output = "stderr"

	err := Serve(context.Background(), cfg)
	assert.ErrorIs(t, err, mailrelay.ErrNoProviders)
}

func TestLoadFileConfig_Example(t *testing.T) {
	cfg, err := LoadFileConfig(filepath.Join("..", "..", "examples", "relay.yaml"))
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, mailrelay.ProviderAWSSES, cfg.Providers[1].Type)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 20, cfg.Server.Burst)
	assert.NoError(t, cfg.Validate())
}
