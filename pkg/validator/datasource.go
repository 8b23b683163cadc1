package validator

import (
	"strings"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
)

const (
	msgUnsupportedDatabaseFmt = "Database type %s is not supported."
	msgMissingConnectionFmt   = "Connection string must be provided for database type %s."
	msgJwtRequired            = "Audience and Issuer must be set when using a JWT identity provider."
	msgJwtNotSupported        = "JWT settings are not supported with EasyAuth providers."
)

// ValidateDataSource checks the database type, and that relational sources
// carry a connection string.
func ValidateDataSource(cfg *config.RuntimeConfig) error {
	ds := cfg.DataSource
	if !ds.DatabaseType.Known() {
		return relay.ConfigValidationErrorf(msgUnsupportedDatabaseFmt, ds.DatabaseType)
	}
	if ds.DatabaseType.IsRelational() && strings.TrimSpace(ds.ConnectionString) == "" {
		return relay.ConfigValidationErrorf(msgMissingConnectionFmt, ds.DatabaseType)
	}
	return nil
}

// ValidateAuthentication checks that JWT providers carry an audience and
// issuer, and that EasyAuth providers do not configure JWT at all.
func ValidateAuthentication(cfg *config.RuntimeConfig) error {
	auth := cfg.Runtime.Host.Authentication
	provider := cfg.AuthenticationProvider()

	if isEasyAuth(provider) {
		if auth != nil && auth.Jwt != nil {
			return relay.NewConfigValidationError(msgJwtNotSupported)
		}
		return nil
	}

	if auth == nil || auth.Jwt == nil || auth.Jwt.Audience == "" || auth.Jwt.Issuer == "" {
		return relay.NewConfigValidationError(msgJwtRequired)
	}
	return nil
}

func isEasyAuth(provider string) bool {
	for _, p := range []string{config.ProviderStaticWebApps, config.ProviderAppService, config.ProviderSimulator} {
		if strings.EqualFold(provider, p) {
			return true
		}
	}
	return false
}
