package validator

import (
	"regexp"
	"strings"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
)

const (
	msgDisallowedNameFmt = "Entity %s contains characters disallowed by GraphQL."
	msgDuplicateQueryFmt = "Entity %s generates queries/mutation that already exist."

	introspectionPrefix = "__"
)

var graphQLName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidGraphQLName reports whether name may be used as a GraphQL type name.
func ValidGraphQLName(name string) bool {
	return graphQLName.MatchString(name) && !strings.HasPrefix(name, introspectionPrefix)
}

// ValidateEntityNames checks the name of every GraphQL-exposed entity: the
// config key by default, or the declared override names.
func ValidateEntityNames(cfg *config.RuntimeConfig) error {
	if !cfg.GraphQLEnabled() {
		return nil
	}
	for _, key := range cfg.SortedEntityNames() {
		for _, name := range cfg.Entities[key].GraphQL.DeclaredNames(key) {
			if !ValidGraphQLName(name) {
				return relay.ConfigValidationErrorf(msgDisallowedNameFmt, name)
			}
		}
	}
	return nil
}

// GeneratedNames returns the GraphQL query and mutation names an entity
// produces. Tables and views get a by-key query, a list query and create,
// update and delete mutations; stored procedures get a single execute
// operation.
func GeneratedNames(key string, e *config.Entity) []string {
	singular, plural := e.GraphQL.Names(key)
	if e.IsStoredProcedure() {
		return []string{"execute" + upperFirst(singular)}
	}
	return []string{
		singular + "_by_pk",
		plural,
		"create" + upperFirst(singular),
		"update" + upperFirst(singular),
		"delete" + upperFirst(singular),
	}
}

// ValidateNoDuplicateQueries walks GraphQL-enabled entities in sorted order
// and fails on the first entity whose generated names collide, ignoring
// case, with names generated by an earlier entity.
func ValidateNoDuplicateQueries(cfg *config.RuntimeConfig) error {
	if !cfg.GraphQLEnabled() {
		return nil
	}
	seen := make(map[string]bool)
	for _, key := range cfg.SortedEntityNames() {
		e := cfg.Entities[key]
		if !e.GraphQL.Enabled() {
			continue
		}
		names := GeneratedNames(key, e)
		for _, n := range names {
			if seen[strings.ToLower(n)] {
				return relay.ConfigValidationErrorf(msgDuplicateQueryFmt, key)
			}
		}
		for _, n := range names {
			seen[strings.ToLower(n)] = true
		}
	}
	return nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
