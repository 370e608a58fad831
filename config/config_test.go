package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := write(t, "config.yaml", `scheduling:
  setting: capacitated-breaks
  coverage: trips-with-demand
  fleet_availability:
    midi: 3
  solver:
    time_limit_seconds: 60
    max_nodes: 5000
metrics:
  sinks:
    - type: "prometheus"
      conf:
        pushgateway_url: "http://pushgateway:9091"
store:
  type: sqlite
  path: runs.db
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "sched"
  qos: 1
sentry:
  environment: test
logging:
  level: debug
source:
  auth:
    client_id: sched
    client_secret: s3cret
    token_url: https://planning.example/oauth/token
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"setting", cfg.Scheduling.Setting, "capacitated-breaks"},
		{"fleet", cfg.Scheduling.FleetAvailability["midi"], 3},
		{"time_limit", cfg.Scheduling.Solver.TimeLimitSeconds, 60.0},
		{"max_nodes", cfg.Scheduling.Solver.MaxNodes, 5000},
		{"backend default", cfg.Scheduling.Solver.Backend, "gonum"},
		{"problem mode default", cfg.Scheduling.ProblemMode, "minimize-fleet"},
		{"sink", cfg.Metrics.Sinks[0].Type, "prometheus"},
		{"pushgateway", cfg.Metrics.Sinks[0].Conf["pushgateway_url"], "http://pushgateway:9091"},
		{"store", cfg.Store.Type, "sqlite"},
		{"store backups default", cfg.Store.MaxBackups, 5},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"qos", cfg.MQTT.QoS, byte(1)},
		{"topic prefix default", cfg.MQTT.TopicPrefix, "fleetsched"},
		{"sentry env", cfg.Sentry.Environment, "test"},
		{"log level", cfg.Logging.Level, "debug"},
		{"log format default", cfg.Logging.Format, "json"},
		{"client id", cfg.Source.Auth.ClientID, "sched"},
		{"source timeout default", cfg.Source.TimeoutSeconds, 30},
		{"api addr default", cfg.API.Addr, ":8080"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := write(t, "config.json", `{"scheduling":{"setting":"capacitated"},"logging":{"level":"info"}}`)
	t.Setenv("FS_SCHEDULING__SETTING", "uncapacitated")
	t.Setenv("FS_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "uncapacitated", cfg.Scheduling.Setting)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_ValidationNamesSection(t *testing.T) {
	cases := map[string]string{
		"scheduling": "scheduling:\n  setting: capacitated\n  coverage: demand-segments\n",
		"store":      "store:\n  type: sqlite\n",
		"mqtt":       "mqtt:\n  broker: tcp://x:1883\n  qos: 4\n",
		"sentry":     "sentry:\n  traces_sample_rate: 2\n",
		"logging":    "logging:\n  level: loud\n",
		"source":     "source:\n  auth:\n    client_id: x\n",
	}
	for section, data := range cases {
		_, err := Load(write(t, "c.yaml", data))
		if assert.Error(t, err, section) {
			assert.Contains(t, err.Error(), section+":")
		}
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(write(t, "c.toml", ""))
	assert.ErrorContains(t, err, "unsupported")
}

func TestLoggingOptions(t *testing.T) {
	c := LoggingConfig{File: "fleetsched.log"}
	c.SetDefaults()
	o := c.Options()
	assert.Equal(t, "info", o.Level)
	assert.Equal(t, 50, o.MaxSizeMB)
}
