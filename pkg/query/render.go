package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/pthm/relay/pkg/metadata"
)

// ErrNoPrimaryKey is returned when an upsert cannot name its conflict target.
var ErrNoPrimaryKey = errors.New("query: upsert target has no primary key")

// ErrNoRowTarget is returned when an upsert would render as an UPDATE that
// does not locate a row, typically because the request left out the key.
var ErrNoRowTarget = errors.New("query: update does not identify a row")

// binder turns symbolic parameter references into dialect placeholders and
// collects the bound arguments in placeholder order.
type binder struct {
	dialect metadata.Dialect
	values  map[string]any
	index   map[string]int
	args    []any
}

func newBinder(d metadata.Dialect, values map[string]any) *binder {
	return &binder{dialect: d, values: values, index: make(map[string]int)}
}

func (b *binder) bind(ref string) string {
	name := strings.TrimPrefix(ref, "@")
	if b.dialect == metadata.DialectMySQL {
		b.args = append(b.args, b.values[name])
		return "?"
	}
	// Postgres placeholders are numbered and may repeat.
	if i, ok := b.index[name]; ok {
		return "$" + strconv.Itoa(i)
	}
	b.args = append(b.args, b.values[name])
	b.index[name] = len(b.args)
	return "$" + strconv.Itoa(len(b.args))
}

func quoteIdent(d metadata.Dialect, name string) string {
	if d == metadata.DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pq.QuoteIdentifier(name)
}

func quoteTable(d metadata.Dialect, obj *metadata.DatabaseObject) string {
	if obj.SchemaName == "" {
		return quoteIdent(d, obj.Name)
	}
	return quoteIdent(d, obj.SchemaName) + "." + quoteIdent(d, obj.Name)
}

func renderOperand(d metadata.Dialect, b *binder, o PredicateOperand) string {
	if o.IsParam() {
		return b.bind(o.Param)
	}
	return quoteIdent(d, o.Column.Name)
}

func renderPredicates(d metadata.Dialect, b *binder, preds []Predicate, sep string) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = renderOperand(d, b, p.Left) + " " + p.Op.String() + " " + renderOperand(d, b, p.Right)
	}
	return strings.Join(parts, sep)
}

func renderReturning(d metadata.Dialect, cols []LabelledColumn) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(d, c.Name) + " AS " + quoteIdent(d, c.Label)
	}
	return strings.Join(parts, ", ")
}

// Render emits the SQL for u in the given dialect along with its arguments
// in placeholder order. A fallback upsert renders as a plain UPDATE;
// otherwise PostgreSQL gets INSERT ... ON CONFLICT and MySQL gets
// INSERT ... ON DUPLICATE KEY UPDATE.
func Render(u *Upsert, d metadata.Dialect) (string, []any, error) {
	switch d {
	case metadata.DialectPostgres, metadata.DialectMySQL:
	default:
		return "", nil, fmt.Errorf("query: unsupported dialect %q", d)
	}

	b := newBinder(d, u.Parameters)
	table := quoteTable(d, u.DatabaseObject)
	var sb strings.Builder

	if u.IsFallbackToUpdate || len(u.InsertColumns) == 0 {
		// Without a WHERE the statement would rewrite every row.
		if len(u.Predicates) == 0 {
			return "", nil, fmt.Errorf("%w: %s", ErrNoRowTarget, u.DatabaseObject.FullName())
		}
		fmt.Fprintf(&sb, "UPDATE %s SET %s WHERE %s", table,
			renderPredicates(d, b, u.UpdateOperations, ", "),
			renderPredicates(d, b, u.Predicates, " AND "))
		if d == metadata.DialectPostgres && len(u.OutputColumns) > 0 {
			fmt.Fprintf(&sb, " RETURNING %s", renderReturning(d, u.OutputColumns))
		}
		return sb.String(), b.args, nil
	}

	cols := make([]string, len(u.InsertColumns))
	for i, c := range u.InsertColumns {
		cols[i] = quoteIdent(d, c)
	}
	values := make([]string, len(u.Values))
	for i, v := range u.Values {
		values[i] = b.bind(v)
	}
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(values, ", "))

	if d == metadata.DialectMySQL {
		fmt.Fprintf(&sb, " ON DUPLICATE KEY UPDATE %s", renderPredicates(d, b, u.UpdateOperations, ", "))
		return sb.String(), b.args, nil
	}

	pk := u.table.PrimaryKey
	if len(pk) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, u.DatabaseObject.FullName())
	}
	conflict := make([]string, len(pk))
	for i, c := range pk {
		conflict[i] = quoteIdent(d, c)
	}
	fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(conflict, ", "), renderPredicates(d, b, u.UpdateOperations, ", "))
	if len(u.OutputColumns) > 0 {
		fmt.Fprintf(&sb, " RETURNING %s", renderReturning(d, u.OutputColumns))
	}
	return sb.String(), b.args, nil
}
