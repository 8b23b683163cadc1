package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-openapi/inflect"
)

// SourceType is the kind of database object backing an entity.
type SourceType string

const (
	SourceTable           SourceType = "table"
	SourceView            SourceType = "view"
	SourceStoredProcedure SourceType = "stored-procedure"
)

// Entity is a logical resource exposed through the gateway.
type Entity struct {
	Source        Source                   `json:"source"`
	Rest          RestEntitySettings       `json:"rest"`
	GraphQL       GraphQLEntitySettings    `json:"graphql"`
	Permissions   []PermissionSetting      `json:"permissions" validate:"dive"`
	Relationships map[string]*Relationship `json:"relationships,omitempty" validate:"dive"`

	// Mappings maps backing column names to exposed field names.
	Mappings map[string]string `json:"mappings,omitempty"`
}

// IsStoredProcedure reports whether the entity is backed by a stored procedure.
func (e *Entity) IsStoredProcedure() bool {
	return e.Source.Type == SourceStoredProcedure
}

// Source names the database object behind an entity.
// In JSON it is either a bare object name (a table) or an object.
type Source struct {
	Type       SourceType     `json:"type,omitempty" validate:"omitempty,oneof=table view stored-procedure"`
	Object     string         `json:"object" validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
	KeyFields  []string       `json:"key-fields,omitempty"`
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Source{Type: SourceTable, Object: name}
		return nil
	}

	type plain Source
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if p.Type == "" {
		p.Type = SourceTable
	}
	*s = Source(p)
	return nil
}

// RestEntitySettings controls whether and where an entity is exposed over REST.
// JSON accepts a bool, a path string, or {"enabled": bool, "path": string}.
type RestEntitySettings struct {
	Disabled bool   `json:"-"`
	Path     string `json:"path,omitempty"`
}

// Enabled reports whether the entity is exposed over REST.
func (r RestEntitySettings) Enabled() bool { return !r.Disabled }

func (r *RestEntitySettings) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*r = RestEntitySettings{Disabled: !b}
		return nil
	}
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		*r = RestEntitySettings{Path: path}
		return nil
	}
	var obj struct {
		Enabled *bool  `json:"enabled"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("rest: %w", err)
	}
	*r = RestEntitySettings{Path: obj.Path, Disabled: obj.Enabled != nil && !*obj.Enabled}
	return nil
}

func (r RestEntitySettings) MarshalJSON() ([]byte, error) {
	if r.Path == "" {
		return json.Marshal(!r.Disabled)
	}
	return json.Marshal(map[string]any{"enabled": !r.Disabled, "path": r.Path})
}

// GraphQLKind is the resolved shape of an entity's GraphQL setting.
type GraphQLKind int

const (
	// GraphQLDefault exposes the entity under its config key. This is also
	// what an absent setting means.
	GraphQLDefault GraphQLKind = iota
	// GraphQLDisabled hides the entity from GraphQL.
	GraphQLDisabled
	// GraphQLNamed exposes the entity under a single override name.
	GraphQLNamed
	// GraphQLSingularPlural exposes the entity with explicit singular and
	// (optionally) plural names.
	GraphQLSingularPlural
)

// GraphQLEntitySettings is the closed variant behind an entity's "graphql"
// field: true/false, a type name, or {"type": name | {"singular", "plural"}}.
type GraphQLEntitySettings struct {
	Kind     GraphQLKind
	Singular string
	Plural   string
}

// Enabled reports whether the entity is exposed over GraphQL.
func (g GraphQLEntitySettings) Enabled() bool {
	return g.Kind != GraphQLDisabled
}

// Names resolves the concrete singular and plural type names for the
// entity with the given config key. A missing plural is derived from the
// singular with English pluralization rules.
func (g GraphQLEntitySettings) Names(entityKey string) (singular, plural string) {
	switch g.Kind {
	case GraphQLNamed:
		singular = g.Singular
	case GraphQLSingularPlural:
		singular, plural = g.Singular, g.Plural
	default:
		singular = entityKey
	}
	if plural == "" {
		plural = inflect.Pluralize(singular)
	}
	return singular, plural
}

// DeclaredNames returns the names written in configuration, which are the
// ones subject to identifier validation.
func (g GraphQLEntitySettings) DeclaredNames(entityKey string) []string {
	switch g.Kind {
	case GraphQLDisabled:
		return nil
	case GraphQLNamed:
		return []string{g.Singular}
	case GraphQLSingularPlural:
		if g.Plural == "" {
			return []string{g.Singular}
		}
		return []string{g.Singular, g.Plural}
	default:
		return []string{entityKey}
	}
}

func (g *GraphQLEntitySettings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = GraphQLEntitySettings{}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*g = GraphQLEntitySettings{Kind: GraphQLDefault}
		} else {
			*g = GraphQLEntitySettings{Kind: GraphQLDisabled}
		}
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*g = GraphQLEntitySettings{Kind: GraphQLNamed, Singular: name}
		return nil
	}

	var obj struct {
		Enabled *bool           `json:"enabled"`
		Type    json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("graphql: %w", err)
	}
	if obj.Enabled != nil && !*obj.Enabled {
		*g = GraphQLEntitySettings{Kind: GraphQLDisabled}
		return nil
	}
	if len(obj.Type) == 0 || bytes.Equal(obj.Type, []byte("null")) {
		*g = GraphQLEntitySettings{Kind: GraphQLDefault}
		return nil
	}
	if err := json.Unmarshal(obj.Type, &name); err == nil {
		*g = GraphQLEntitySettings{Kind: GraphQLNamed, Singular: name}
		return nil
	}
	var sp struct {
		Singular string  `json:"singular"`
		Plural   *string `json:"plural"`
	}
	if err := json.Unmarshal(obj.Type, &sp); err != nil {
		return fmt.Errorf("graphql type: %w", err)
	}
	*g = GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: sp.Singular}
	if sp.Plural != nil {
		g.Plural = *sp.Plural
	}
	return nil
}

func (g GraphQLEntitySettings) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case GraphQLDisabled:
		return []byte("false"), nil
	case GraphQLNamed:
		return json.Marshal(map[string]string{"type": g.Singular})
	case GraphQLSingularPlural:
		t := map[string]string{"singular": g.Singular}
		if g.Plural != "" {
			t["plural"] = g.Plural
		}
		return json.Marshal(map[string]any{"type": t})
	default:
		return []byte("true"), nil
	}
}
