// Package config loads pmidfetch configuration from a YAML file, an optional
// .env file and the process environment.
//
// It uses Viper for file parsing and unmarshalling and godotenv for .env
// files. Environment variables carrying the PMIDFETCH_ prefix override file
// values, with underscores mapped onto nested keys:
//
//	PMIDFETCH_RATE=10            -> rate
//	PMIDFETCH_LOOKUP_TIMEOUT=5s  -> lookup.timeout
//	PMIDFETCH_QUIESCENCE_TICKS=3 -> quiescence_ticks
//
// # Usage
//
//	var cfg fetch.Config
//	err := config.LoadConfig("pmidfetch", &cfg, config.WithConfigFile(path))
package config
