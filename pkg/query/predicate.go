package query

import "strings"

// Column references a physical column of a database object.
type Column struct {
	Schema string
	Table  string
	Name   string
}

// String renders the column as schema.table.name, omitting empty parts.
func (c Column) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Schema, c.Table, c.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// LabelledColumn is a column returned under an exposed field name.
type LabelledColumn struct {
	Column
	Label string
}

// PredicateOperation is a comparison between two operands.
type PredicateOperation int

const (
	OpEqual PredicateOperation = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
)

var operationSQL = map[PredicateOperation]string{
	OpEqual:              "=",
	OpNotEqual:           "<>",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
}

func (o PredicateOperation) String() string {
	if s, ok := operationSQL[o]; ok {
		return s
	}
	return "?"
}

// PredicateOperand is either a column or a parameter reference such as
// "@param0".
type PredicateOperand struct {
	Column *Column
	Param  string
}

// ColumnOperand returns an operand for col.
func ColumnOperand(col Column) PredicateOperand {
	return PredicateOperand{Column: &col}
}

// ParamOperand returns an operand referencing the named parameter.
func ParamOperand(name string) PredicateOperand {
	return PredicateOperand{Param: ParamRef(name)}
}

// IsParam reports whether the operand references a parameter.
func (o PredicateOperand) IsParam() bool {
	return o.Column == nil
}

// ParamName returns the parameter name without its '@' prefix.
func (o PredicateOperand) ParamName() string {
	return strings.TrimPrefix(o.Param, "@")
}

func (o PredicateOperand) String() string {
	if o.Column != nil {
		return o.Column.String()
	}
	return o.Param
}

// Predicate is a binary comparison. It expresses both WHERE conditions
// and SET assignments.
type Predicate struct {
	Left  PredicateOperand
	Op    PredicateOperation
	Right PredicateOperand
}

// Equal returns col = @param.
func Equal(col Column, param string) Predicate {
	return Predicate{Left: ColumnOperand(col), Op: OpEqual, Right: ParamOperand(param)}
}

func (p Predicate) String() string {
	return p.Left.String() + " " + p.Op.String() + " " + p.Right.String()
}

// ParamRef returns the symbolic reference for a parameter name.
func ParamRef(name string) string {
	return "@" + name
}
