package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
)

// fixture returns a provider with:
//
//	Book     dbo.books    id (auto-generated PK), title (required), publisher_id (nullable)
//	Author   dbo.authors  id (PK), name (required), bio (nullable), created (defaulted)
//	Tag      dbo.tags     id (PK), label (defaulted)
//	BookView dbo.books_v  a view over books
func fixture() *metadata.Static {
	p := metadata.NewStatic("dbo")

	books := &metadata.TableDefinition{PrimaryKey: []string{"id"}}
	books.AddColumn(&metadata.ColumnDefinition{Name: "id", SystemType: metadata.TypeInt32, IsAutoGenerated: true, HasDefault: true})
	books.AddColumn(&metadata.ColumnDefinition{Name: "title", SystemType: metadata.TypeString})
	books.AddColumn(&metadata.ColumnDefinition{Name: "publisher_id", SystemType: metadata.TypeInt32, IsNullable: true})
	p.AddObject("Book", &metadata.DatabaseObject{SchemaName: "dbo", Name: "books", SourceType: config.SourceTable, TableDefinition: books})

	authors := &metadata.TableDefinition{PrimaryKey: []string{"id"}}
	authors.AddColumn(&metadata.ColumnDefinition{Name: "id", SystemType: metadata.TypeInt32})
	authors.AddColumn(&metadata.ColumnDefinition{Name: "name", SystemType: metadata.TypeString})
	authors.AddColumn(&metadata.ColumnDefinition{Name: "bio", SystemType: metadata.TypeString, IsNullable: true})
	authors.AddColumn(&metadata.ColumnDefinition{Name: "created", SystemType: metadata.TypeDateTime, HasDefault: true})
	p.AddObject("Author", &metadata.DatabaseObject{SchemaName: "dbo", Name: "authors", SourceType: config.SourceTable, TableDefinition: authors})

	tags := &metadata.TableDefinition{PrimaryKey: []string{"id"}}
	tags.AddColumn(&metadata.ColumnDefinition{Name: "id", SystemType: metadata.TypeInt64})
	tags.AddColumn(&metadata.ColumnDefinition{Name: "label", SystemType: metadata.TypeString, HasDefault: true})
	p.AddObject("Tag", &metadata.DatabaseObject{SchemaName: "dbo", Name: "tags", SourceType: config.SourceTable, TableDefinition: tags})

	view := &metadata.TableDefinition{PrimaryKey: []string{"id"}}
	view.AddColumn(&metadata.ColumnDefinition{Name: "id", SystemType: metadata.TypeInt32})
	view.AddColumn(&metadata.ColumnDefinition{Name: "title", SystemType: metadata.TypeString})
	view.AddColumn(&metadata.ColumnDefinition{Name: "publisher_id", SystemType: metadata.TypeInt32, IsNullable: true})
	p.AddObject("BookView", &metadata.DatabaseObject{SchemaName: "dbo", Name: "books_v", SourceType: config.SourceView, TableDefinition: view})

	return p
}

func predicateStrings(preds []Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.String()
	}
	return out
}

func TestNewUpsert_AutoGeneratedKey(t *testing.T) {
	u, err := NewUpsert("Book", fixture(), map[string]any{"id": 1, "title": "Dune"}, false)
	require.NoError(t, err)

	assert.True(t, u.IsFallbackToUpdate)
	assert.Equal(t, []string{"title"}, u.InsertColumns, "an auto-generated key is never inserted")
	assert.Equal(t, []string{"@param1"}, u.Values)
	assert.Equal(t, []string{"dbo.books.id = @param0"}, predicateStrings(u.Predicates))
	assert.Equal(t, []string{
		"dbo.books.title = @param1",
		"dbo.books.publisher_id = @param2",
	}, predicateStrings(u.UpdateOperations))

	assert.Equal(t, int32(1), u.Parameters["param0"])
	assert.Equal(t, "Dune", u.Parameters["param1"])
	assert.Contains(t, u.Parameters, "param2")
	assert.Nil(t, u.Parameters["param2"])
	assert.Equal(t, []string{"param0", "param1", "param2"}, u.ParamNames())
}

func TestNewUpsert_FullReplace(t *testing.T) {
	u, err := NewUpsert("Author", fixture(), map[string]any{"id": float64(7), "name": "Le Guin"}, false)
	require.NoError(t, err)

	assert.False(t, u.IsFallbackToUpdate)
	assert.Equal(t, []string{"id", "name"}, u.InsertColumns)
	assert.Equal(t, []string{"@param0", "@param1"}, u.Values)
	assert.Equal(t, []string{"dbo.authors.id = @param0"}, predicateStrings(u.Predicates))
	// created has a default and is left alone.
	assert.Equal(t, []string{
		"dbo.authors.name = @param1",
		"dbo.authors.bio = @param2",
	}, predicateStrings(u.UpdateOperations))
	assert.Equal(t, int32(7), u.Parameters["param0"])
}

func TestNewUpsert_Incremental(t *testing.T) {
	tests := []struct {
		name         string
		params       map[string]any
		wantFallback bool
		wantUpdates  []string
	}{
		{
			name:         "required column missing",
			params:       map[string]any{"id": 7, "bio": "x"},
			wantFallback: true,
			wantUpdates:  []string{"dbo.authors.bio = @param1"},
		},
		{
			name:         "required column supplied",
			params:       map[string]any{"id": 7, "name": "Le Guin"},
			wantFallback: false,
			wantUpdates:  []string{"dbo.authors.name = @param1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUpsert("Author", fixture(), tt.params, true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFallback, u.IsFallbackToUpdate)
			assert.Equal(t, tt.wantUpdates, predicateStrings(u.UpdateOperations), "incremental requests never nullify")
		})
	}
}

func TestNewUpsert_NoUpdateValues(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		params      map[string]any
		incremental bool
	}{
		{name: "incremental with key only", entity: "Author", params: map[string]any{"id": 7}, incremental: true},
		{name: "remaining columns defaulted", entity: "Tag", params: map[string]any{"id": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUpsert(tt.entity, fixture(), tt.params, tt.incremental)
			require.Error(t, err)
			assert.True(t, relay.IsBadRequestErr(err))
			assert.Equal(t, MsgNoUpdateValues, err.Error())
		})
	}
}

func TestNewUpsert_BadValue(t *testing.T) {
	_, err := NewUpsert("Author", fixture(), map[string]any{"id": "abc", "name": "x"}, false)
	require.Error(t, err)
	assert.True(t, relay.IsBadRequestErr(err))
	assert.Equal(t, `Parameter "abc" cannot be resolved as column "id" with type "Int32".`, err.Error())

	e, ok := relay.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.StatusCode)
}

func TestNewUpsert_UnexpectedField(t *testing.T) {
	_, err := NewUpsert("Author", fixture(), map[string]any{"id": 7, "nickname": "x"}, false)
	require.Error(t, err)
	assert.True(t, relay.IsBadRequestErr(err))
	assert.Equal(t, "Invalid request body. Contained unexpected fields in body: nickname", err.Error())
}

func TestNewUpsert_NullValue(t *testing.T) {
	u, err := NewUpsert("Author", fixture(), map[string]any{"id": 7, "name": "x", "bio": nil}, false)
	require.NoError(t, err)

	// Sorted field order: bio, id, name.
	assert.Equal(t, []string{"bio", "id", "name"}, u.InsertColumns)
	assert.Nil(t, u.Parameters["param0"])
	assert.Len(t, u.UpdateOperations, 2)
}

func TestNewUpsert_MappedColumns(t *testing.T) {
	p := fixture()
	p.SetMappings("Author", map[string]string{"name": "full_name"})

	u, err := NewUpsert("Author", p, map[string]any{"id": 7, "full_name": "Le Guin", "bio": "b"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bio", "name", "id"}, u.InsertColumns)

	labels := map[string]string{}
	for _, c := range u.OutputColumns {
		labels[c.Name] = c.Label
	}
	assert.Equal(t, "full_name", labels["name"])
	assert.Equal(t, "bio", labels["bio"])

	_, err = NewUpsert("Author", p, map[string]any{"id": 7, "name": "x"}, false)
	assert.True(t, relay.IsBadRequestErr(err), "mapped columns are only reachable by their exposed name")
}

// synonymProvider exposes one backing column under several field names.
type synonymProvider struct {
	*metadata.Static
	synonyms map[string]string
}

func (p synonymProvider) TryGetBackingColumn(entity, field string) (string, bool) {
	if col, ok := p.synonyms[field]; ok {
		return col, true
	}
	return p.Static.TryGetBackingColumn(entity, field)
}

func TestNewUpsert_SharedBackingColumn(t *testing.T) {
	p := synonymProvider{Static: fixture(), synonyms: map[string]string{"full_name": "name"}}

	u, err := NewUpsert("Author", p, map[string]any{"id": 7, "full_name": "Le Guin", "name": "Le Guin"}, true)
	require.NoError(t, err)

	// Sorted field order: full_name, id, name. name reuses full_name's parameter.
	assert.Equal(t, []string{"param0", "param1"}, u.ParamNames())
	assert.Equal(t, "Le Guin", u.Parameters["param0"])
	assert.Equal(t, []string{"name", "id"}, u.InsertColumns)
	assert.Equal(t, []string{"@param0", "@param1"}, u.Values)
	assert.Equal(t, []string{"dbo.authors.name = @param0"}, predicateStrings(u.UpdateOperations))
	assert.Equal(t, []string{"dbo.authors.id = @param1"}, predicateStrings(u.Predicates))
}

func TestNewUpsert_View(t *testing.T) {
	u, err := NewUpsert("BookView", fixture(), map[string]any{"id": 1, "title": "Dune"}, false, WithBaseEntity("Book"))
	require.NoError(t, err)

	assert.Equal(t, "Book", u.BaseEntityName)
	assert.Equal(t, []string{"dbo.books_v.title = @param1"}, predicateStrings(u.UpdateOperations), "views never nullify")
	assert.Equal(t, []string{"id", "title"}, u.InsertColumns)
}

func TestNewUpsert_ColumnAliases(t *testing.T) {
	p := fixture()
	view := &metadata.TableDefinition{PrimaryKey: []string{"book_id"}}
	view.AddColumn(&metadata.ColumnDefinition{Name: "book_id", SystemType: metadata.TypeInt32})
	view.AddColumn(&metadata.ColumnDefinition{Name: "title", SystemType: metadata.TypeString})
	p.AddObject("BookSummary", &metadata.DatabaseObject{SchemaName: "dbo", Name: "book_summary", SourceType: config.SourceView, TableDefinition: view})

	u, err := NewUpsert("BookSummary", p, map[string]any{"book_id": 3, "title": "Dune"}, false,
		WithBaseEntity("Book"), WithColumnAliases(map[string]string{"id": "book_id"}))
	require.NoError(t, err)

	// book_id is a key of the base table under its alias.
	assert.Equal(t, []string{"book_id", "title"}, u.InsertColumns)
	assert.Equal(t, []string{"dbo.book_summary.book_id = @param0"}, predicateStrings(u.Predicates))
}

func TestNewUpsert_UnknownEntity(t *testing.T) {
	_, err := NewUpsert("Nope", fixture(), map[string]any{"id": 1}, false)
	assert.ErrorIs(t, err, metadata.ErrUnknownEntity)
}

func TestNewUpsert_Concurrent(t *testing.T) {
	p := fixture()
	var eg errgroup.Group
	for i := range 32 {
		eg.Go(func() error {
			u, err := NewUpsert("Author", p, map[string]any{"id": i, "name": fmt.Sprintf("author-%d", i)}, false)
			if err != nil {
				return err
			}
			if got := u.Parameters["param0"]; got != int32(i) {
				return fmt.Errorf("param0 = %v, want %d", got, i)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}
