package query

import (
	"fmt"
	"maps"
	"slices"

	"github.com/pthm/relay"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
)

// Request-level failures of an upsert.
const (
	MsgNoUpdateValues      = "Update mutation does not update any values"
	msgUnexpectedFieldsFmt = "Invalid request body. Contained unexpected fields in body: %s"
)

// Upsert holds what an insert-or-update statement needs. The same
// parameters serve the INSERT and the UPDATE branch.
type Upsert struct {
	*BaseQueryStructure

	// InsertColumns and Values are index-aligned.
	InsertColumns []string
	Values        []string

	// UpdateOperations are the SET assignments.
	UpdateOperations []Predicate

	// OutputColumns is every column, returned whichever branch runs.
	OutputColumns []LabelledColumn

	// IsFallbackToUpdate is set when the row cannot be inserted: the
	// primary key is auto-generated, or an incremental request leaves out
	// a required column.
	IsFallbackToUpdate bool

	columnToParam map[string]string
}

type upsertOptions struct {
	baseEntity string
	aliases    map[string]string
}

// UpsertOption configures NewUpsert.
type UpsertOption func(*upsertOptions)

// WithBaseEntity writes through the table of another entity, for entities
// backed by a view over that table.
func WithBaseEntity(name string) UpsertOption {
	return func(o *upsertOptions) {
		o.baseEntity = name
	}
}

// WithColumnAliases renames base-table columns to the entity's columns.
func WithColumnAliases(aliases map[string]string) UpsertOption {
	return func(o *upsertOptions) {
		o.aliases = aliases
	}
}

// NewUpsert builds the upsert structure for a request against entity.
// params maps exposed field names to decoded request values and must
// include the primary key. With incremental set, unspecified columns are
// left untouched; otherwise they are nulled where the schema allows.
//
// Request defects, such as an unknown field, a value that does not fit its
// column or nothing left to update, are returned as BadRequest errors.
func NewUpsert(entity string, provider metadata.Provider, params map[string]any, incremental bool, opts ...UpsertOption) (*Upsert, error) {
	var o upsertOptions
	for _, opt := range opts {
		opt(&o)
	}

	base, err := newBaseQueryStructure(entity, o.baseEntity, o.aliases, provider)
	if err != nil {
		return nil, err
	}

	u := &Upsert{
		BaseQueryStructure: base,
		columnToParam:      make(map[string]string),
	}
	u.OutputColumns = u.GenerateOutputColumns()
	u.IsFallbackToUpdate = hasAutoGeneratedKey(u.table)

	if err := u.populate(params, incremental); err != nil {
		return nil, err
	}
	if len(u.UpdateOperations) == 0 {
		return nil, relay.NewBadRequestError(MsgNoUpdateValues)
	}
	return u, nil
}

func (u *Upsert) populate(params map[string]any, incremental bool) error {
	baseTable, err := u.provider.GetTableDefinition(u.BaseEntityName)
	if err != nil {
		return err
	}

	// Columns of the base table under the entity's names.
	remaining := make([]string, 0, len(baseTable.Columns))
	var basePrimaryKeys []string
	for _, col := range baseTable.Columns {
		name := col.Name
		if alias, ok := u.ColumnAliases[name]; ok {
			name = alias
		}
		remaining = append(remaining, name)
		if baseTable.IsPrimaryKey(col.Name) {
			basePrimaryKeys = append(basePrimaryKeys, name)
		}
	}

	for _, field := range slices.Sorted(maps.Keys(params)) {
		backing, ok := u.provider.TryGetBackingColumn(u.EntityName, field)
		if !ok {
			return relay.NewBadRequestError(fmt.Sprintf(msgUnexpectedFieldsFmt, field))
		}
		if _, seen := u.columnToParam[backing]; seen {
			continue
		}

		var value any
		if raw := params[field]; raw != nil {
			value, err = u.ParamAsColumnSystemType(stringValue(raw), backing)
			if err != nil {
				return relay.WrapBadRequest(err)
			}
		}
		param := u.MakeParamWithValue(value)
		u.columnToParam[backing] = param

		predicate := Equal(u.Column(backing), param)
		if u.table.IsPrimaryKey(backing) {
			// An auto-generated key only ever locates the row.
			col := u.table.Column(backing)
			if slices.Contains(basePrimaryKeys, backing) && (col == nil || !col.IsAutoGenerated) {
				u.addInsert(backing)
			}
			u.Predicates = append(u.Predicates, predicate)
		} else {
			u.UpdateOperations = append(u.UpdateOperations, predicate)
			u.addInsert(backing)
		}
		remaining = slices.DeleteFunc(remaining, func(c string) bool { return c == backing })
	}

	if u.DatabaseObject.SourceType == config.SourceView {
		return nil
	}
	if incremental {
		if missingRequiredColumn(remaining, u.table) {
			u.IsFallbackToUpdate = true
		}
		return nil
	}
	u.UpdateOperations = u.AddNullifiedUnspecifiedFields(remaining, u.UpdateOperations, baseTable)
	return nil
}

func (u *Upsert) addInsert(column string) {
	u.InsertColumns = append(u.InsertColumns, column)
	u.Values = append(u.Values, ParamRef(u.columnToParam[column]))
}

func hasAutoGeneratedKey(table *metadata.TableDefinition) bool {
	for _, pk := range table.PrimaryKey {
		if col := table.Column(pk); col != nil && col.IsAutoGenerated {
			return true
		}
	}
	return false
}

// missingRequiredColumn reports whether any of columns must be supplied
// for an insert to succeed.
func missingRequiredColumn(columns []string, table *metadata.TableDefinition) bool {
	for _, name := range columns {
		col := table.Column(name)
		if col != nil && !col.IsAutoGenerated && !col.HasDefault && !col.IsNullable {
			return true
		}
	}
	return false
}
