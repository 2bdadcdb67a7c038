package bootstrap

import (
	"github.com/kbukum/ssehub/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig automatically satisfies it
// via promoted methods, as config.AppConfig does.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
