// Package relay is the core of a configuration-driven data-access gateway.
//
// A runtime configuration declares entities backed by tables, views, or
// stored procedures, the relationships between them, and per-role permission
// rules. Before anything is served the configuration is checked by
// pkg/validator; per request, pkg/query builds the parameterized structure an
// execution layer turns into SQL.
//
// # Module Structure
//
//   - github.com/pthm/relay: classified errors shared by every package.
//   - pkg/config: the runtime configuration object graph and its loader.
//   - pkg/policy: database policy parsing and field accessibility.
//   - pkg/metadata: schema metadata providers (static, introspected, snapshot).
//   - pkg/validator: the configuration validator.
//   - pkg/query: base and upsert query structures plus dialect rendering.
//   - cmd/relay: the CLI for validating configurations and previewing upserts.
//
// # Errors
//
// Every failure raised by the validator or the query builders is a *Error
// carrying a fixed message, a status code and a sub-status:
//
//	if err := v.ValidateConfig(cfg); err != nil {
//		if relay.IsConfigValidationErr(err) {
//			// refuse to start
//		}
//	}
package relay
