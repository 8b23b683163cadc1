package validator

import (
	"strings"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
)

// Fixed route messages.
const (
	MsgConflictingPaths    = "Conflicting GraphQL and REST path configuration."
	MsgRestPathEmpty       = "REST path prefix cannot be null or empty."
	MsgRestPathNoSlash     = "REST path should start with a '/'."
	MsgBadlyFormedRestPath = "REST path prefix contains one or more reserved characters."
)

// reservedPathChars may not appear in a REST path prefix after its leading slash.
const reservedPathChars = `.:?#/[]@!$&'()*+,;=`

// ValidateGlobalRoutes fails when the REST and GraphQL prefixes coincide.
// Absent prefixes take their defaults.
func ValidateGlobalRoutes(cfg *config.RuntimeConfig) error {
	if cfg.RestPath() == cfg.GraphQLPath() {
		return relay.NewConfigValidationError(MsgConflictingPaths)
	}
	return nil
}

// ValidateRestPath checks the REST prefix of a relational data source with
// REST enabled.
func ValidateRestPath(cfg *config.RuntimeConfig) error {
	if !cfg.DataSource.DatabaseType.IsRelational() || !cfg.RestEnabled() {
		return nil
	}
	return ValidateRestPathPrefix(cfg.RestPath())
}

// ValidateRestPathPrefix checks a single REST prefix: it must be non-empty,
// start with '/', and contain no reserved character after that slash.
// Spaces, hyphens and underscores are allowed.
func ValidateRestPathPrefix(path string) error {
	if path == "" {
		return relay.NewConfigValidationError(MsgRestPathEmpty)
	}
	if !strings.HasPrefix(path, "/") {
		return relay.NewConfigValidationError(MsgRestPathNoSlash)
	}
	if strings.ContainsAny(path[1:], reservedPathChars) {
		return relay.NewConfigValidationError(MsgBadlyFormedRestPath)
	}
	return nil
}
