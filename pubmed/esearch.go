package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/pmidfetch/httpclient"
	"github.com/kbukum/pmidfetch/security"
	"github.com/kbukum/pmidfetch/version"
)

// DefaultESearchURL is the NCBI E-utilities esearch endpoint.
const DefaultESearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"

const defaultMaxRedirects = 10

// ESearchConfig configures title lookups against esearch.
type ESearchConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Method       string        `yaml:"method" mapstructure:"method" validate:"oneof=GET POST"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// MaxRedirects caps the redirects followed. Zero disables redirect
	// following; nil means defaultMaxRedirects.
	MaxRedirects *int          `yaml:"max_redirects" mapstructure:"max_redirects" validate:"omitnil,gte=0"`
	DB           string        `yaml:"db" mapstructure:"db" validate:"required"`
	Field        string        `yaml:"field" mapstructure:"field"`
	// Tool and Email identify the caller to NCBI when set.
	Tool  string `yaml:"tool" mapstructure:"tool"`
	Email string `yaml:"email" mapstructure:"email"`
	// APIKey raises the NCBI rate allowance when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// TLS customizes certificate verification, e.g. behind a proxy.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills zero values with the esearch defaults.
func (c *ESearchConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultESearchURL
	}
	if c.Method == "" {
		c.Method = http.MethodPost
	}
	c.Method = strings.ToUpper(c.Method)
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRedirects == nil {
		n := defaultMaxRedirects
		c.MaxRedirects = &n
	}
	if c.DB == "" {
		c.DB = "pubmed"
	}
	if c.Field == "" {
		c.Field = "title"
	}
}

// ESearch looks up one title per call. It implements fetch.Lookup.
type ESearch struct {
	client *httpclient.Client
	cfg    ESearchConfig
}

// NewESearch builds an ESearch client.
func NewESearch(cfg ESearchConfig) (*ESearch, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		FollowRedirects: *cfg.MaxRedirects > 0,
		MaxRedirects:    *cfg.MaxRedirects,
		UserAgent:       version.UserAgent(),
		TLS:             cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("esearch client: %w", err)
	}
	return &ESearch{client: client, cfg: cfg}, nil
}

// Lookup searches for term and returns the raw eSearchResult body. Any
// non-2xx status is an error.
func (e *ESearch) Lookup(ctx context.Context, term string) ([]byte, error) {
	params := e.params(term)
	req := httpclient.Request{Method: e.cfg.Method}
	if e.cfg.Method == http.MethodPost {
		req.Form = params
	} else {
		req.Query = params
	}

	resp, err := e.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (e *ESearch) params(term string) url.Values {
	v := url.Values{
		"db":   {e.cfg.DB},
		"term": {term},
	}
	if e.cfg.Field != "" {
		v.Set("field", e.cfg.Field)
	}
	if e.cfg.Tool != "" {
		v.Set("tool", e.cfg.Tool)
	}
	if e.cfg.Email != "" {
		v.Set("email", e.cfg.Email)
	}
	if e.cfg.APIKey != "" {
		v.Set("api_key", e.cfg.APIKey)
	}
	return v
}
