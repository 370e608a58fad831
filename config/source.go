package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetsched/auth"
)

// SourceConfig describes how remote instances are fetched.
type SourceConfig struct {
	Auth           auth.Conf `json:"auth"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

func (c *SourceConfig) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
}

func (c SourceConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	return c.Auth.Validate()
}

// Timeout returns the request timeout.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIConfig configures the run history HTTP API.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token, when set, must be sent as "Authorization: Bearer <token>".
	Token string `json:"token"`
	// Metrics exposes the Prometheus registry on /metrics.
	Metrics bool `json:"metrics"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
