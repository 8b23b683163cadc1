package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphQLEntitySettings_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want GraphQLEntitySettings
	}{
		{"true", `true`, GraphQLEntitySettings{Kind: GraphQLDefault}},
		{"false", `false`, GraphQLEntitySettings{Kind: GraphQLDisabled}},
		{"null", `null`, GraphQLEntitySettings{Kind: GraphQLDefault}},
		{"bare name", `"book"`, GraphQLEntitySettings{Kind: GraphQLNamed, Singular: "book"}},
		{"type name", `{"type": "book_alternative"}`, GraphQLEntitySettings{Kind: GraphQLNamed, Singular: "book_alternative"}},
		{"singular only", `{"type": {"singular": "BooK"}}`, GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "BooK"}},
		{"singular plural", `{"type": {"singular": "BooK", "plural": "BooKs"}}`, GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "BooK", Plural: "BooKs"}},
		{"null plural", `{"type": {"singular": "book", "plural": null}}`, GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "book"}},
		{"enabled false", `{"enabled": false, "type": "book"}`, GraphQLEntitySettings{Kind: GraphQLDisabled}},
		{"enabled no type", `{"enabled": true}`, GraphQLEntitySettings{Kind: GraphQLDefault}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got GraphQLEntitySettings
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraphQLEntitySettings_Names(t *testing.T) {
	tests := []struct {
		name         string
		settings     GraphQLEntitySettings
		key          string
		wantSingular string
		wantPlural   string
	}{
		{"default", GraphQLEntitySettings{}, "book", "book", "books"},
		{"named", GraphQLEntitySettings{Kind: GraphQLNamed, Singular: "category"}, "categories_table", "category", "categories"},
		{"explicit plural", GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "BooK", Plural: "BooKs"}, "x", "BooK", "BooKs"},
		{"derived plural", GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "book_alt"}, "x", "book_alt", "book_alts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			singular, plural := tt.settings.Names(tt.key)
			assert.Equal(t, tt.wantSingular, singular)
			assert.Equal(t, tt.wantPlural, plural)
		})
	}
}

func TestGraphQLEntitySettings_DeclaredNames(t *testing.T) {
	assert.Equal(t, []string{"book"}, GraphQLEntitySettings{}.DeclaredNames("book"))
	assert.Nil(t, GraphQLEntitySettings{Kind: GraphQLDisabled}.DeclaredNames("book"))
	assert.Equal(t, []string{"b"}, GraphQLEntitySettings{Kind: GraphQLNamed, Singular: "b"}.DeclaredNames("book"))
	assert.Equal(t, []string{"s", "p"}, GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "s", Plural: "p"}.DeclaredNames("book"))
	assert.Equal(t, []string{"s"}, GraphQLEntitySettings{Kind: GraphQLSingularPlural, Singular: "s"}.DeclaredNames("book"))
}

func TestGraphQLEntitySettings_RoundTrip(t *testing.T) {
	for _, g := range []GraphQLEntitySettings{
		{Kind: GraphQLDefault},
		{Kind: GraphQLDisabled},
		{Kind: GraphQLNamed, Singular: "Book"},
		{Kind: GraphQLSingularPlural, Singular: "Book", Plural: "Bookz"},
	} {
		data, err := json.Marshal(g)
		require.NoError(t, err)
		var back GraphQLEntitySettings
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, g, back)
	}
}

func TestRestEntitySettings_Unmarshal(t *testing.T) {
	var r RestEntitySettings
	require.NoError(t, json.Unmarshal([]byte(`false`), &r))
	assert.False(t, r.Enabled())

	require.NoError(t, json.Unmarshal([]byte(`"/books"`), &r))
	assert.True(t, r.Enabled())
	assert.Equal(t, "/books", r.Path)

	require.NoError(t, json.Unmarshal([]byte(`{"enabled": false, "path": "/b"}`), &r))
	assert.False(t, r.Enabled())
	assert.Equal(t, "/b", r.Path)
}

func TestSource_Unmarshal(t *testing.T) {
	var s Source
	require.NoError(t, json.Unmarshal([]byte(`"dbo.books"`), &s))
	assert.Equal(t, Source{Type: SourceTable, Object: "dbo.books"}, s)

	require.NoError(t, json.Unmarshal([]byte(`{"type": "view", "object": "books_view", "key-fields": ["id"]}`), &s))
	assert.Equal(t, SourceView, s.Type)
	assert.Equal(t, []string{"id"}, s.KeyFields)
}
