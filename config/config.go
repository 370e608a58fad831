package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetsched/core/metrics"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/infra/mqtt"
	"github.com/kilianp07/fleetsched/infra/store"
)

// EnvPrefix marks environment overrides. FS_SCHEDULING__SETTING=capacitated
// sets scheduling.setting.
const EnvPrefix = "FS_"

type Config struct {
	Scheduling scheduler.SchedulerConfig `json:"scheduling"`
	Metrics    metrics.Config            `json:"metrics"`
	Store      store.Config              `json:"store"`
	MQTT       mqtt.Config               `json:"mqtt"`
	Sentry     SentryConfig              `json:"sentry"`
	Logging    LoggingConfig             `json:"logging"`
	Source     SourceConfig              `json:"source"`
	API        APIConfig                 `json:"api"`
}

// Load reads a YAML or JSON file, applies FS_ environment overrides, fills
// defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Scheduling.SetDefaults()
	c.Store.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.Source.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"scheduling", c.Scheduling.Validate()},
		{"store", c.Store.Validate()},
		{"mqtt", c.MQTT.Validate()},
		{"sentry", c.Sentry.Validate()},
		{"logging", c.Logging.Validate()},
		{"source", c.Source.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	return nil
}
