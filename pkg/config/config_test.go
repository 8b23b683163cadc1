package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "$schema": "relay.draft.schema.json",
  "data-source": {
    "database-type": "postgresql",
    "connection-string": "@env('RELAY_TEST_DSN')"
  },
  "runtime": {
    "rest": { "path": "/rest-api" },
    "graphql": { "path": "/graphql", "allow-introspection": true },
    "host": { "mode": "development", "authentication": { "provider": "AppService" } }
  },
  "entities": {
    "Publisher": {
      "source": "publishers",
      "permissions": [
        { "role": "anonymous", "actions": [ "read" ] },
        { "role": "authenticated", "actions": [
          { "action": "update", "fields": { "include": [], "exclude": ["name"] }, "policy": { "database": "@item.id ne 140" } },
          { "action": "delete", "policy": { "database": null } }
        ] }
      ],
      "relationships": {
        "books": { "cardinality": "many", "target.entity": "Book" }
      }
    },
    "Book": {
      "source": { "type": "table", "object": "books" },
      "graphql": { "type": { "singular": "book", "plural": "books" } },
      "rest": false,
      "permissions": [ { "role": "anonymous", "actions": [ "*" ] } ],
      "mappings": { "id": "book_id" }
    },
    "GetBooks": {
      "source": { "type": "stored-procedure", "object": "get_books", "parameters": { "limit": 10 } },
      "graphql": "Books",
      "permissions": [ { "role": "anonymous", "actions": [ "execute" ] } ]
    }
  }
}`

func TestParse_JSON(t *testing.T) {
	t.Setenv("RELAY_TEST_DSN", "postgres://localhost/books")

	cfg, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, PostgreSQL, cfg.DataSource.DatabaseType)
	assert.Equal(t, "postgres://localhost/books", cfg.DataSource.ConnectionString)
	assert.Equal(t, "/rest-api", cfg.RestPath())
	assert.Equal(t, "/graphql", cfg.GraphQLPath())
	assert.Equal(t, ProviderAppService, cfg.AuthenticationProvider())
	require.Len(t, cfg.Entities, 3)

	pub := cfg.Entities["Publisher"]
	assert.Equal(t, Source{Type: SourceTable, Object: "publishers"}, pub.Source)
	assert.Equal(t, GraphQLDefault, pub.GraphQL.Kind)
	assert.True(t, pub.Rest.Enabled())
	require.Len(t, pub.Permissions, 2)

	update := pub.Permissions[1].Actions[0]
	assert.Equal(t, "update", update.Action)
	require.NotNil(t, update.Fields)
	assert.NotNil(t, update.Fields.Include, "declared empty include must stay non-nil")
	assert.Empty(t, update.Fields.Include)
	assert.Equal(t, []string{"name"}, update.Fields.Exclude)
	policy, ok := update.DatabasePolicy()
	assert.True(t, ok)
	assert.Equal(t, "@item.id ne 140", policy)

	_, ok = pub.Permissions[1].Actions[1].DatabasePolicy()
	assert.False(t, ok, "null database policy is absent")

	rel := pub.Relationships["books"]
	require.NotNil(t, rel)
	assert.Equal(t, CardinalityMany, rel.Cardinality)
	assert.Equal(t, "Book", rel.TargetEntity)
	assert.Nil(t, rel.SourceFields)

	book := cfg.Entities["Book"]
	assert.False(t, book.Rest.Enabled())
	assert.Equal(t, GraphQLSingularPlural, book.GraphQL.Kind)
	assert.Equal(t, map[string]string{"id": "book_id"}, book.Mappings)

	sp := cfg.Entities["GetBooks"]
	assert.True(t, sp.IsStoredProcedure())
	assert.Equal(t, GraphQLNamed, sp.GraphQL.Kind)
	assert.Equal(t, "Books", sp.GraphQL.Singular)
}

func TestParse_YAML(t *testing.T) {
	doc := `
data-source:
  database-type: mysql
  connection-string: "server=localhost"
entities:
  Author:
    source: authors
    graphql: false
    permissions:
      - role: anonymous
        actions:
          - action: read
            fields:
              include: ["*"]
              exclude: null
`
	cfg, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, MySQL, cfg.DataSource.DatabaseType)
	author := cfg.Entities["Author"]
	require.NotNil(t, author)
	assert.False(t, author.GraphQL.Enabled())
	fields := author.Permissions[0].Actions[0].Fields
	require.NotNil(t, fields)
	assert.Equal(t, []string{"*"}, fields.Include)
	assert.Nil(t, fields.Exclude)
}

func TestParse_MissingEnv(t *testing.T) {
	_, err := Parse([]byte(`{"data-source": {"database-type": "mssql", "connection-string": "@env('RELAY_SURELY_UNSET_VAR')"}}`), FormatJSON)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "RELAY_SURELY_UNSET_VAR")
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown database type", `{"data-source": {"database-type": "oracle"}}`},
		{"missing source object", `{"data-source": {"database-type": "mssql"}, "entities": {"A": {"source": {"type": "table"}}}}`},
		{"missing role", `{"data-source": {"database-type": "mssql"}, "entities": {"A": {"source": "a", "permissions": [{"actions": ["read"]}]}}}`},
		{"missing relationship target", `{"data-source": {"database-type": "mssql"}, "entities": {"A": {"source": "a", "relationships": {"r": {"cardinality": "one"}}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "incomplete runtime config")
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay-config.yml")
	err := os.WriteFile(path, []byte("data-source:\n  database-type: postgresql\n  connection-string: x\n"), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PostgreSQL, cfg.DataSource.DatabaseType)
	assert.Equal(t, DefaultRestPath, cfg.RestPath())
	assert.Equal(t, DefaultGraphQLPath, cfg.GraphQLPath())
	assert.Equal(t, ProviderStaticWebApps, cfg.AuthenticationProvider())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load("/nonexistent/relay-config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading runtime config")
}

func TestExpandEnv(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "HOST" {
			return "db.local", true
		}
		return "", false
	}

	out, err := ExpandEnv("Server=@env('HOST');Port=5432", lookup)
	require.NoError(t, err)
	assert.Equal(t, "Server=db.local;Port=5432", out)

	_, err = ExpandEnv("@env('HOST') @env('PORT')", lookup)
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "PORT")
}

func TestSortedEntityNames(t *testing.T) {
	cfg := &RuntimeConfig{Entities: map[string]*Entity{
		"Book":     {},
		"book":     {},
		"book_alt": {},
		"Author":   {},
		"BOOK":     {},
	}}

	names := cfg.SortedEntityNames()
	require.Len(t, names, 5)
	assert.Equal(t, "Author", names[0])
	assert.Less(t, indexOf(names, "book"), indexOf(names, "Book"), "lowercase sorts first on a case-only tie")
	assert.Less(t, indexOf(names, "Book"), indexOf(names, "book_alt"))
}

func TestDatabaseType(t *testing.T) {
	assert.True(t, MSSQL.Known())
	assert.True(t, CosmosDBNoSQL.Known())
	assert.False(t, DatabaseType("oracle").Known())
	assert.True(t, MySQL.IsRelational())
	assert.False(t, CosmosDBNoSQL.IsRelational())
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
