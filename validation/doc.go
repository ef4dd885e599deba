// Package validation checks configuration before a pipeline run starts.
//
// Struct tag validation uses go-playground/validator with field names taken
// from mapstructure tags, so messages name the key as it appears in
// config.yml:
//
//	type LookupConfig struct {
//	    Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg) // INVALID_CONFIG: lookup.timeout: must be greater than 0
//
// Programmatic checks collect errors the same way:
//
//	v := validation.New()
//	v.Positive("rate", cfg.Rate)
//	err := v.Validate()
package validation
