// Package validator checks a runtime configuration before anything is
// served. It rejects malformed policies, illegal operations, unreachable
// relationships, colliding GraphQL names and malformed routes.
//
// Every check fails fast: the first violation is returned as a
// *relay.Error with sub-status ConfigValidationError. Validation never
// mutates the configuration, so running it twice on the same input yields
// the same result.
//
// Example usage:
//
//	v := validator.New(validator.WithLogger(log))
//	if err := v.ValidateConfig(cfg); err != nil {
//		return err
//	}
//	if err := v.ValidateRelationships(cfg, provider); err != nil {
//		return err
//	}
package validator

import (
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
)

// Logger receives debug output about validation stages.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Validator runs configuration checks. It holds only settings and is safe
// for concurrent use.
type Validator struct {
	limitedClaimsProviders []string
	reservedClaims         []string
	log                    Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLimitedClaimsProviders sets the authentication providers whose
// tokens only carry the reserved claims. Names match case-insensitively.
func WithLimitedClaimsProviders(providers ...string) Option {
	return func(v *Validator) {
		v.limitedClaimsProviders = providers
	}
}

// WithReservedClaims sets the claims a limited-claims provider supplies.
func WithReservedClaims(claims ...string) Option {
	return func(v *Validator) {
		v.reservedClaims = claims
	}
}

// WithLogger sets the logger used for stage-level debug output.
func WithLogger(l Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

// DefaultLimitedClaimsProviders are the providers restricted to the
// reserved claims unless configured otherwise.
var DefaultLimitedClaimsProviders = []string{config.ProviderStaticWebApps}

// DefaultReservedClaims are the only claims a limited provider supplies.
var DefaultReservedClaims = []string{"userId", "userDetails"}

// New returns a Validator with the default provider settings.
func New(opts ...Option) *Validator {
	v := &Validator{
		limitedClaimsProviders: DefaultLimitedClaimsProviders,
		reservedClaims:         DefaultReservedClaims,
		log:                    nopLogger{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateConfig runs every check that needs only the configuration:
// data source, authentication, global routes, entity names, generated
// GraphQL names and permissions, in that order.
func (v *Validator) ValidateConfig(cfg *config.RuntimeConfig) error {
	stages := []struct {
		name string
		run  func(*config.RuntimeConfig) error
	}{
		{"data source", ValidateDataSource},
		{"authentication", ValidateAuthentication},
		{"global routes", ValidateGlobalRoutes},
		{"rest path", ValidateRestPath},
		{"entity names", ValidateEntityNames},
		{"generated names", ValidateNoDuplicateQueries},
		{"permissions", v.ValidatePermissions},
	}

	for _, stage := range stages {
		v.log.Debugf("validating %s", stage.name)
		if err := stage.run(cfg); err != nil {
			v.log.Debugf("%s validation failed: %v", stage.name, err)
			return err
		}
	}
	return nil
}

// Validate runs ValidateConfig and, when a metadata provider is given,
// ValidateRelationships.
func (v *Validator) Validate(cfg *config.RuntimeConfig, provider metadata.Provider) error {
	if err := v.ValidateConfig(cfg); err != nil {
		return err
	}
	if provider == nil {
		v.log.Debugf("no schema metadata; skipping relationship validation")
		return nil
	}
	return v.ValidateRelationships(cfg, provider)
}
