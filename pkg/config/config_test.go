package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "server.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[server]
port = 9090

[cache]
max_bytes = 1024
ttl = 0

[database]
driver = sqlite
path = /tmp/x.db

[log]
level = debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "bytearray", cfg.Server.ServiceName)
	assert.Equal(t, int64(1024), cfg.Cache.MaxBytes)
	assert.Equal(t, time.Duration(0), cfg.Cache.CacheTTL())
	assert.Equal(t, 5*time.Minute, cfg.Cache.Interval())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, 300, cfg.RateLimit.WriteQPS)
	assert.Equal(t, logrus.DebugLevel, cfg.Log.LogLevel())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[database]\ndriver = redis\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unknown database.driver")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.MaxBytes = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Gateway.Replicas = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Breaker.FailureRatio = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Breaker.RecoverAfter = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadBreakerConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[circuitbreaker]
window = 1m
open_timeout = 500ms
failure_ratio = 0.25
min_requests = 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Breaker.Window)
	assert.Equal(t, 500*time.Millisecond, cfg.Breaker.OpenTimeout)
	assert.InDelta(t, 0.25, cfg.Breaker.FailureRatio, 1e-9)
	assert.Equal(t, 4, cfg.Breaker.MinRequests)
	assert.Equal(t, 5, cfg.Breaker.RecoverAfter)
}

func TestLoadGatewayConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[server]
port = 9000

[etcd]
endpoints = 127.0.0.1:2379

[gateway]
replicas = 20
nodes = 127.0.0.1:8080,127.0.0.1:8081
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Gateway.Replicas)
	assert.Equal(t, "127.0.0.1:8080,127.0.0.1:8081", cfg.Gateway.Nodes)
	assert.Equal(t, "127.0.0.1:2379", cfg.Etcd.Endpoints)
	assert.Equal(t, int64(10), cfg.Etcd.TTL)
}

func TestListValues(t *testing.T) {
	t.Parallel()

	gw := GatewayConfig{Nodes: " 127.0.0.1:8080, ,10.0.0.2:8080 "}
	assert.Equal(t, []string{"127.0.0.1:8080", "10.0.0.2:8080"}, gw.NodeList())
	assert.Empty(t, (&GatewayConfig{}).NodeList())

	etcd := EtcdConfig{Endpoints: "127.0.0.1:2379,10.0.0.2:2379,"}
	assert.Equal(t, []string{"127.0.0.1:2379", "10.0.0.2:2379"}, etcd.EndpointList())
	assert.Empty(t, (&EtcdConfig{Endpoints: " , "}).EndpointList())
}

func TestLogLevelFallback(t *testing.T) {
	t.Parallel()

	l := LogConfig{Level: "nonsense"}
	assert.Equal(t, logrus.InfoLevel, l.LogLevel())
}
