package httpclient

import (
	"time"

	"github.com/kbukum/pmidfetch/security"
	"github.com/kbukum/pmidfetch/validation"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to request paths that are not absolute URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each request end to end, redirects included. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// FollowRedirects enables redirect following. When false the first
	// redirect response is returned as-is.
	FollowRedirects bool `yaml:"follow_redirects" mapstructure:"follow_redirects"`

	// MaxRedirects caps the number of redirects followed. Defaults to 10.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects"`

	// UserAgent is sent on every request when set.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// TLS customizes certificate verification for HTTPS endpoints.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	v := validation.New().
		PositiveDuration("timeout", c.Timeout).
		Check(c.MaxRedirects >= 0, "max_redirects", "must not be negative")
	if c.BaseURL != "" {
		v.HTTPURL("base_url", c.BaseURL)
	}
	if err := c.TLS.Validate(); err != nil {
		v.AddError("tls", err.Error())
	}
	return v.Validate()
}
