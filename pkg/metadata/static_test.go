package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/relay/pkg/config"
)

func booksTable() *TableDefinition {
	def := &TableDefinition{PrimaryKey: []string{"id"}}
	def.AddColumn(&ColumnDefinition{Name: "id", SystemType: TypeInt32, IsAutoGenerated: true, HasDefault: true})
	def.AddColumn(&ColumnDefinition{Name: "title", SystemType: TypeString})
	def.AddColumn(&ColumnDefinition{Name: "publisher_id", SystemType: TypeInt32, IsNullable: true})
	return def
}

func TestTableDefinition(t *testing.T) {
	def := booksTable()

	assert.Equal(t, []string{"id", "title", "publisher_id"}, def.ColumnNames())
	assert.True(t, def.IsPrimaryKey("id"))
	assert.False(t, def.IsPrimaryKey("title"))
	require.NotNil(t, def.Column("title"))
	assert.Nil(t, def.Column("missing"))

	def.AddColumn(&ColumnDefinition{Name: "title", SystemType: TypeString, IsNullable: true})
	assert.Len(t, def.Columns, 3, "re-adding a column replaces it")
	assert.True(t, def.Column("title").IsNullable)
}

func TestStatic_Lookups(t *testing.T) {
	s := NewStatic("dbo")
	s.AddObject("Book", &DatabaseObject{SchemaName: "dbo", Name: "books", SourceType: config.SourceTable, TableDefinition: booksTable()})
	s.AddObject("GetBooks", &DatabaseObject{SchemaName: "dbo", Name: "get_books", SourceType: config.SourceStoredProcedure})
	s.SetMappings("Book", map[string]string{"id": "book_id"})

	def, err := s.GetTableDefinition("Book")
	require.NoError(t, err)
	assert.Len(t, def.Columns, 3)

	_, err = s.GetTableDefinition("Nope")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = s.GetTableDefinition("GetBooks")
	assert.Error(t, err, "stored procedures have no table definition")

	backing, ok := s.TryGetBackingColumn("Book", "book_id")
	assert.True(t, ok)
	assert.Equal(t, "id", backing)

	backing, ok = s.TryGetBackingColumn("Book", "title")
	assert.True(t, ok)
	assert.Equal(t, "title", backing)

	_, ok = s.TryGetBackingColumn("Book", "id")
	assert.False(t, ok, "mapped columns are only reachable by their exposed name")

	_, ok = s.TryGetBackingColumn("Book", "nope")
	assert.False(t, ok)

	exposed, ok := s.TryGetExposedColumnName("Book", "id")
	assert.True(t, ok)
	assert.Equal(t, "book_id", exposed)

	exposed, ok = s.TryGetExposedColumnName("Book", "title")
	assert.True(t, ok)
	assert.Equal(t, "title", exposed)

	assert.Len(t, s.EntityToDatabaseObject(), 2)
}

func TestStatic_ForeignKeys(t *testing.T) {
	s := NewStatic("dbo")
	books := TableRef{Schema: "dbo", Name: "books"}
	authors := TableRef{Schema: "dbo", Name: "authors"}
	link := TableRef{Schema: "dbo", Name: "book_author_link"}

	s.AddForeignKey(ForeignKey{Referencing: link, Referenced: books, ReferencingColumns: []string{"book_id"}, ReferencedColumns: []string{"id"}})
	s.AddForeignKey(ForeignKey{Referencing: link, Referenced: authors, ReferencingColumns: []string{"author_id"}, ReferencedColumns: []string{"id"}})

	assert.True(t, s.VerifyForeignKeyExists(link, books))
	assert.True(t, s.VerifyForeignKeyExists(link, authors))
	assert.False(t, s.VerifyForeignKeyExists(books, link), "direction matters")
	assert.False(t, s.VerifyForeignKeyExists(books, authors))
}

func TestParseSchemaAndTable(t *testing.T) {
	tests := []struct {
		in      string
		want    TableRef
		wantErr bool
	}{
		{"books", TableRef{Schema: "dbo", Name: "books"}, false},
		{"sales.books", TableRef{Schema: "sales", Name: "books"}, false},
		{"[dbo].[books]", TableRef{Schema: "dbo", Name: "books"}, false},
		{`"public"."books"`, TableRef{Schema: "public", Name: "books"}, false},
		{"`shop`.`books`", TableRef{Schema: "shop", Name: "books"}, false},
		{"", TableRef{}, true},
		{"a.b.c", TableRef{}, true},
		{"dbo.", TableRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSchemaAndTable(tt.in, "dbo")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUseMappings(t *testing.T) {
	s := NewStatic("public")
	s.AddObject("Book", &DatabaseObject{SchemaName: "public", Name: "books", SourceType: config.SourceTable, TableDefinition: booksTable()})
	s.UseMappings(&config.RuntimeConfig{Entities: map[string]*config.Entity{
		"Book": {Mappings: map[string]string{"title": "name"}},
	}})

	backing, ok := s.TryGetBackingColumn("Book", "name")
	assert.True(t, ok)
	assert.Equal(t, "title", backing)
}

func TestSystemTypeOf(t *testing.T) {
	tests := map[string]SystemType{
		"integer":                  TypeInt32,
		"INT":                      TypeInt32,
		"bigint":                   TypeInt64,
		"smallint":                 TypeInt16,
		"character varying":        TypeString,
		"text":                     TypeString,
		"boolean":                  TypeBoolean,
		"numeric":                  TypeDecimal,
		"double precision":         TypeDouble,
		"real":                     TypeSingle,
		"uuid":                     TypeGuid,
		"bytea":                    TypeByteArray,
		"timestamp with time zone": TypeDateTimeOffset,
		"datetime":                 TypeDateTime,
		"tinyint":                  TypeByte,
	}
	for in, want := range tests {
		assert.Equal(t, want, SystemTypeOf(in), in)
	}
}
