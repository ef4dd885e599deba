package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/pmidfetch/config"
	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/observability"
	"github.com/kbukum/pmidfetch/pubmed"
	"github.com/kbukum/pmidfetch/server"
	"github.com/kbukum/pmidfetch/validation"
)

const serviceName = "pmidfetch"

// appConfig is the full pmidfetch configuration. Pipeline settings sit at
// the top level next to the service fields.
type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	fetch.Config         `yaml:",inline" mapstructure:",squash"`

	Lookup    pubmed.ESearchConfig `yaml:"lookup" mapstructure:"lookup"`
	Source    pubmed.SourceConfig  `yaml:"source" mapstructure:"source"`
	Sink      pubmed.SinkConfig    `yaml:"sink" mapstructure:"sink"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Status    server.Config        `yaml:"status" mapstructure:"status"`
}

func (c *appConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Config.ApplyDefaults()
	c.Lookup.ApplyDefaults()
	c.Source.ApplyDefaults()
	c.Sink.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Status.ApplyDefaults()
}

func (c *appConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.Status.Validate()
}

// loadConfig reads the config file and environment, then applies any flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*appConfig, error) {
	cfg := &appConfig{Config: fetch.DefaultConfig()}
	var opts []config.LoaderOption
	if rootFlags.configFile != "" {
		opts = append(opts, config.WithConfigFile(rootFlags.configFile))
	}
	if rootFlags.envFile != "" {
		opts = append(opts, config.WithEnvFile(rootFlags.envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cmd, cfg)
	return cfg, nil
}

func applyRunFlags(cmd *cobra.Command, cfg *appConfig) {
	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Source.Path = runFlags.input
	}
	if f.Changed("output") {
		cfg.Sink.Path = runFlags.output
	}
	if f.Changed("rate") {
		cfg.Rate = runFlags.rate
	}
	if f.Changed("tick") {
		cfg.Tick = runFlags.tick
	}
	if f.Changed("quiescence-ticks") {
		cfg.QuiescenceTicks = runFlags.quiescenceTicks
	}
	if f.Changed("completion") {
		cfg.Completion = fetch.CompletionMode(runFlags.completion)
	}
	if f.Changed("method") {
		cfg.Lookup.Method = runFlags.method
	}
	if f.Changed("api-key") {
		cfg.Lookup.APIKey = runFlags.apiKey
	}
	if f.Changed("status") {
		cfg.Status.Enabled = runFlags.status
	}
	if f.Changed("status-port") {
		cfg.Status.Port = runFlags.statusPort
	}
}
