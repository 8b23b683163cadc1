// Package query builds the parameterized structures behind mutations.
//
// A structure is built per request from immutable table metadata and the
// request's values. It records which columns to insert, which to update,
// which predicates locate the row and which parameters to bind, leaving
// SQL text to Render. Structures share no state, so building them is safe
// from any number of goroutines.
package query

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pthm/relay/pkg/metadata"
)

const paramPrefix = "param"

// Date and time layouts accepted for DateTime and DateTimeOffset columns.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BaseQueryStructure holds what every query structure needs: the target
// object, its parameters and its WHERE predicates.
type BaseQueryStructure struct {
	// EntityName is the entity the request addresses.
	EntityName string

	// BaseEntityName is the entity whose table is written to. It differs
	// from EntityName when EntityName is a view over another entity.
	BaseEntityName string

	DatabaseObject *metadata.DatabaseObject

	// ColumnAliases maps base-table columns to the entity's column names.
	ColumnAliases map[string]string

	// Parameters holds bound values by parameter name.
	Parameters map[string]any

	// Predicates are the WHERE conditions.
	Predicates []Predicate

	provider   metadata.Provider
	table      *metadata.TableDefinition
	paramNames []string
}

func newBaseQueryStructure(entity, baseEntity string, aliases map[string]string, provider metadata.Provider) (*BaseQueryStructure, error) {
	obj, ok := provider.DatabaseObject(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", metadata.ErrUnknownEntity, entity)
	}
	table, err := provider.GetTableDefinition(entity)
	if err != nil {
		return nil, err
	}
	if baseEntity == "" {
		baseEntity = entity
	}
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &BaseQueryStructure{
		EntityName:     entity,
		BaseEntityName: baseEntity,
		DatabaseObject: obj,
		ColumnAliases:  aliases,
		Parameters:     make(map[string]any),
		provider:       provider,
		table:          table,
	}, nil
}

// TableDefinition returns the definition of the entity's object.
func (b *BaseQueryStructure) TableDefinition() *metadata.TableDefinition {
	return b.table
}

// MakeParamWithValue allocates the next parameter name, param0, param1 and
// so on, and binds value to it.
func (b *BaseQueryStructure) MakeParamWithValue(value any) string {
	name := paramPrefix + strconv.Itoa(len(b.paramNames))
	b.paramNames = append(b.paramNames, name)
	b.Parameters[name] = value
	return name
}

// ParamNames returns parameter names in allocation order.
func (b *BaseQueryStructure) ParamNames() []string {
	return append([]string(nil), b.paramNames...)
}

// Column returns a reference to a column of the entity's object.
func (b *BaseQueryStructure) Column(name string) Column {
	return Column{Schema: b.DatabaseObject.SchemaName, Table: b.DatabaseObject.Name, Name: name}
}

// GenerateOutputColumns returns every column of the object labelled with
// its exposed field name.
func (b *BaseQueryStructure) GenerateOutputColumns() []LabelledColumn {
	out := make([]LabelledColumn, 0, len(b.table.Columns))
	for _, col := range b.table.Columns {
		label, ok := b.provider.TryGetExposedColumnName(b.EntityName, col.Name)
		if !ok {
			label = col.Name
		}
		out = append(out, LabelledColumn{Column: b.Column(col.Name), Label: label})
	}
	return out
}

// ParamAsColumnSystemType converts a request value to the type of the
// named column.
func (b *BaseQueryStructure) ParamAsColumnSystemType(value, column string) (any, error) {
	col := b.table.Column(column)
	if col == nil {
		return nil, fmt.Errorf(`Column "%s" does not exist on %s.`, column, b.DatabaseObject.FullName())
	}
	v, err := coerce(value, col.SystemType)
	if err != nil {
		return nil, fmt.Errorf(`Parameter "%s" cannot be resolved as column "%s" with type "%s".`, value, column, col.SystemType)
	}
	return v, nil
}

// AddNullifiedUnspecifiedFields appends a "column = NULL" assignment to ops
// for every remaining column that is neither auto-generated, defaulted nor
// part of the primary key, and returns the extended slice.
func (b *BaseQueryStructure) AddNullifiedUnspecifiedFields(remaining []string, ops []Predicate, table *metadata.TableDefinition) []Predicate {
	for _, name := range remaining {
		col := table.Column(name)
		if col == nil || col.IsAutoGenerated || col.HasDefault || table.IsPrimaryKey(name) {
			continue
		}
		ops = append(ops, Equal(b.Column(name), b.MakeParamWithValue(nil)))
	}
	return ops
}

func coerce(value string, typ metadata.SystemType) (any, error) {
	switch typ {
	case metadata.TypeString, "":
		return value, nil
	case metadata.TypeByte:
		v, err := strconv.ParseUint(value, 10, 8)
		return uint8(v), err
	case metadata.TypeInt16:
		v, err := strconv.ParseInt(value, 10, 16)
		return int16(v), err
	case metadata.TypeInt32:
		v, err := strconv.ParseInt(value, 10, 32)
		return int32(v), err
	case metadata.TypeInt64:
		return strconv.ParseInt(value, 10, 64)
	case metadata.TypeSingle:
		v, err := strconv.ParseFloat(value, 32)
		return float32(v), err
	case metadata.TypeDouble, metadata.TypeDecimal:
		return strconv.ParseFloat(value, 64)
	case metadata.TypeBoolean:
		return strconv.ParseBool(value)
	case metadata.TypeDateTime, metadata.TypeDateTimeOffset:
		return parseTime(value)
	case metadata.TypeGuid:
		return uuid.Parse(value)
	case metadata.TypeByteArray:
		return base64.StdEncoding.DecodeString(value)
	}
	return nil, fmt.Errorf("unsupported system type %s", typ)
}

func parseTime(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// stringValue renders a decoded request value the way it was written.
func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case fmt.Stringer:
		return x.String()
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
