// Package config defines the runtime configuration of a relay deployment:
// the data source, global REST/GraphQL settings, authentication, and the
// entities exposed through the gateway.
//
// A RuntimeConfig is built once at load time and treated as immutable
// afterwards. Reloading constructs a new instance.
package config

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Default global path prefixes.
const (
	DefaultRestPath    = "/api"
	DefaultGraphQLPath = "/graphql"
)

// Authentication provider names that are not JWT based.
const (
	ProviderStaticWebApps = "StaticWebApps"
	ProviderAppService    = "AppService"
	ProviderSimulator     = "Simulator"
)

// DatabaseType identifies the backing database engine.
type DatabaseType string

const (
	MSSQL         DatabaseType = "mssql"
	PostgreSQL    DatabaseType = "postgresql"
	MySQL         DatabaseType = "mysql"
	CosmosDBNoSQL DatabaseType = "cosmosdb_nosql"
)

// Known reports whether t is a supported database type.
func (t DatabaseType) Known() bool {
	switch t {
	case MSSQL, PostgreSQL, MySQL, CosmosDBNoSQL:
		return true
	}
	return false
}

// IsRelational reports whether t is a SQL database.
func (t DatabaseType) IsRelational() bool {
	return t == MSSQL || t == PostgreSQL || t == MySQL
}

// RuntimeConfig is the root of the configuration document.
type RuntimeConfig struct {
	Schema     string             `json:"$schema,omitempty"`
	DataSource DataSource         `json:"data-source"`
	Runtime    RuntimeSettings    `json:"runtime"`
	Entities   map[string]*Entity `json:"entities" validate:"dive"`
}

// DataSource describes the database every entity is served from.
type DataSource struct {
	DatabaseType     DatabaseType   `json:"database-type" validate:"required,oneof=mssql postgresql mysql cosmosdb_nosql"`
	ConnectionString string         `json:"connection-string"`
	Options          map[string]any `json:"options,omitempty"`
}

// RuntimeSettings holds settings that apply to every entity.
type RuntimeSettings struct {
	Rest    RestGlobalSettings    `json:"rest"`
	GraphQL GraphQLGlobalSettings `json:"graphql"`
	Host    HostSettings          `json:"host"`
}

// RestGlobalSettings configures the REST surface.
type RestGlobalSettings struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Path    *string `json:"path,omitempty"`
}

// GraphQLGlobalSettings configures the GraphQL surface.
type GraphQLGlobalSettings struct {
	Enabled            *bool   `json:"enabled,omitempty"`
	Path               *string `json:"path,omitempty"`
	AllowIntrospection bool    `json:"allow-introspection,omitempty"`
}

// HostSettings configures the hosting process.
type HostSettings struct {
	Mode           string                  `json:"mode,omitempty"`
	Authentication *AuthenticationSettings `json:"authentication,omitempty"`
}

// AuthenticationSettings names the identity provider.
type AuthenticationSettings struct {
	Provider string       `json:"provider,omitempty"`
	Jwt      *JwtSettings `json:"jwt,omitempty"`
}

// JwtSettings are required by JWT identity providers.
type JwtSettings struct {
	Audience string `json:"audience,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
}

// RestPath returns the configured REST prefix, or the default when absent.
func (c *RuntimeConfig) RestPath() string {
	if c.Runtime.Rest.Path == nil {
		return DefaultRestPath
	}
	return *c.Runtime.Rest.Path
}

// GraphQLPath returns the configured GraphQL prefix, or the default when absent.
func (c *RuntimeConfig) GraphQLPath() string {
	if c.Runtime.GraphQL.Path == nil {
		return DefaultGraphQLPath
	}
	return *c.Runtime.GraphQL.Path
}

// RestEnabled reports whether the REST surface is on. Absent means enabled.
func (c *RuntimeConfig) RestEnabled() bool {
	return c.Runtime.Rest.Enabled == nil || *c.Runtime.Rest.Enabled
}

// GraphQLEnabled reports whether the GraphQL surface is on. Absent means enabled.
func (c *RuntimeConfig) GraphQLEnabled() bool {
	return c.Runtime.GraphQL.Enabled == nil || *c.Runtime.GraphQL.Enabled
}

// AuthenticationProvider returns the configured identity provider name,
// defaulting to StaticWebApps.
func (c *RuntimeConfig) AuthenticationProvider() string {
	auth := c.Runtime.Host.Authentication
	if auth == nil || auth.Provider == "" {
		return ProviderStaticWebApps
	}
	return auth.Provider
}

// SortedEntityNames returns the entity keys in a stable, culture-aware
// order: names compare case-insensitively first, and on a tie the
// lowercase form sorts before the uppercase one ("book" before "Book").
func (c *RuntimeConfig) SortedEntityNames() []string {
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	SortNames(names)
	return names
}

// SortNames sorts names in place using the same ordering as SortedEntityNames.
func SortNames(names []string) {
	col := collate.New(language.English)
	sort.SliceStable(names, func(i, j int) bool {
		if c := col.CompareString(names[i], names[j]); c != 0 {
			return c < 0
		}
		return names[i] < names[j]
	})
}
