package bootstrap

import (
	"github.com/kbukum/pmidfetch/config"
)

// Config is the constraint for application configuration types. A struct
// embedding config.ServiceConfig satisfies it through promoted methods as
// long as it does not shadow ApplyDefaults or Validate without calling
// the embedded ones.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
