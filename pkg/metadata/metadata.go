// Package metadata describes the physical database objects behind entities
// and provides the lookups the validator and the query builders need:
// table definitions, backing column names and foreign keys.
//
// A Provider is populated once, by introspecting a live database or by
// loading a snapshot, and is read-only afterwards.
package metadata

import (
	"errors"

	"github.com/pthm/relay/pkg/config"
)

// ErrUnknownEntity is returned when an entity has no database object.
var ErrUnknownEntity = errors.New("metadata: entity has no database object")

// SystemType is the language-level type a column's values are coerced to.
type SystemType string

const (
	TypeString         SystemType = "String"
	TypeByte           SystemType = "Byte"
	TypeInt16          SystemType = "Int16"
	TypeInt32          SystemType = "Int32"
	TypeInt64          SystemType = "Int64"
	TypeSingle         SystemType = "Single"
	TypeDouble         SystemType = "Double"
	TypeDecimal        SystemType = "Decimal"
	TypeBoolean        SystemType = "Boolean"
	TypeDateTime       SystemType = "DateTime"
	TypeDateTimeOffset SystemType = "DateTimeOffset"
	TypeGuid           SystemType = "Guid"
	TypeByteArray      SystemType = "ByteArray"
)

// TableRef identifies a physical object by schema and name.
type TableRef struct {
	Schema string
	Name   string
}

func (r TableRef) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// ColumnDefinition describes one column.
type ColumnDefinition struct {
	Name            string
	SystemType      SystemType
	IsAutoGenerated bool
	HasDefault      bool
	IsNullable      bool
	DefaultValue    *string
}

// TableDefinition holds the columns of a table or view in declaration order.
type TableDefinition struct {
	PrimaryKey []string
	Columns    []*ColumnDefinition

	index map[string]*ColumnDefinition
}

// AddColumn appends a column, replacing any existing column of the same name.
// It is not safe to call concurrently with lookups.
func (t *TableDefinition) AddColumn(col *ColumnDefinition) {
	if existing := t.Column(col.Name); existing != nil {
		*existing = *col
		return
	}
	if t.index == nil {
		t.index = make(map[string]*ColumnDefinition, len(t.Columns)+1)
		for _, c := range t.Columns {
			t.index[c.Name] = c
		}
	}
	t.Columns = append(t.Columns, col)
	t.index[col.Name] = col
}

// Column returns the named column, or nil. Lookups never mutate the
// definition, so a populated definition may be shared across goroutines.
func (t *TableDefinition) Column(name string) *ColumnDefinition {
	if t.index != nil {
		return t.index[name]
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns column names in declaration order.
func (t *TableDefinition) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IsPrimaryKey reports whether name is part of the primary key.
func (t *TableDefinition) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// DatabaseObject is the physical object behind an entity.
type DatabaseObject struct {
	SchemaName string
	Name       string
	SourceType config.SourceType

	// TableDefinition is nil for stored procedures.
	TableDefinition *TableDefinition
}

// Ref returns the object's schema-qualified identity.
func (o *DatabaseObject) Ref() TableRef {
	return TableRef{Schema: o.SchemaName, Name: o.Name}
}

// FullName returns schema.name, or name when there is no schema.
func (o *DatabaseObject) FullName() string {
	return o.Ref().String()
}

// ForeignKey is a referential constraint from Referencing to Referenced.
type ForeignKey struct {
	Name               string
	Referencing        TableRef
	Referenced         TableRef
	ReferencingColumns []string
	ReferencedColumns  []string
}

// Provider is the read-only view of schema metadata consumed by the
// validator and the query builders.
type Provider interface {
	// GetTableDefinition returns the table definition of entity.
	GetTableDefinition(entity string) (*TableDefinition, error)

	// DatabaseObject returns the object behind entity.
	DatabaseObject(entity string) (*DatabaseObject, bool)

	// EntityToDatabaseObject returns every known entity's object.
	EntityToDatabaseObject() map[string]*DatabaseObject

	// ParseSchemaAndTable splits a possibly schema-qualified object name,
	// filling in the default schema when none is given.
	ParseSchemaAndTable(name string) (TableRef, error)

	// VerifyForeignKeyExists reports whether referencing has a foreign key
	// to referenced.
	VerifyForeignKeyExists(referencing, referenced TableRef) bool

	// TryGetBackingColumn maps an exposed field name to its column.
	TryGetBackingColumn(entity, field string) (string, bool)

	// TryGetExposedColumnName maps a column to its exposed field name.
	TryGetExposedColumnName(entity, column string) (string, bool)
}
