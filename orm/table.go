package orm

import (
	"fmt"
	"strings"
)

// TableRef is a table operand of FROM, INSERT INTO, or JOIN: either a
// simple table created by Table or a Hybrid produced by joining two refs.
type TableRef interface {
	fmt.Stringer

	// Join returns a new Hybrid joining the receiver with other.
	Join(other any, on string) Hybrid

	// Err reports an error recorded while the reference was built.
	Err() error

	render(app string) string
}

type simpleTable struct {
	name string
}

// Table returns a reference to the model name. It renders as the registry
// token _name_ (lowercased), which the execution service resolves to the
// physical table. A name that is already a token is kept verbatim.
func Table(name string) TableRef {
	return simpleTable{name: name}
}

func (t simpleTable) String() string { return t.render("") }

func (t simpleTable) Join(other any, on string) Hybrid { return Join(t, other, on) }

func (t simpleTable) Err() error {
	if strings.TrimSpace(t.name) == "" {
		return formatErrorf("table name cannot be empty")
	}
	return nil
}

func (t simpleTable) render(app string) string {
	if isToken(t.name) {
		return t.name
	}
	name := strings.ToLower(t.name)
	if app != "" {
		return strings.ToLower(app) + "_" + name
	}
	return "_" + name + "_"
}

// Hybrid is a JOIN of two table references under a condition.
// The zero value is not usable; create one with Join.
type Hybrid struct {
	left  TableRef
	right TableRef
	on    string
	err   error
}

// Join combines left and right (each a table name or a TableRef) into
// "left JOIN right ON on". Nested hybrids are parenthesised.
func Join(left, right any, on string) Hybrid {
	h := Hybrid{on: on}
	var lerr, rerr error
	h.left, lerr = toTable(left)
	h.right, rerr = toTable(right)
	switch {
	case lerr != nil:
		h.err = lerr
	case rerr != nil:
		h.err = rerr
	case strings.TrimSpace(on) == "":
		h.err = formatErrorf("join condition cannot be empty")
	}
	return h
}

func (h Hybrid) String() string { return h.render("") }

func (h Hybrid) Join(other any, on string) Hybrid { return Join(h, other, on) }

func (h Hybrid) Err() error { return h.err }

func (h Hybrid) render(app string) string {
	return operand(h.left, app) + " JOIN " + operand(h.right, app) + " ON " + h.on
}

func operand(t TableRef, app string) string {
	if _, ok := t.(Hybrid); ok {
		return "(" + t.render(app) + ")"
	}
	return t.render(app)
}

func toTable(v any) (TableRef, error) {
	switch t := v.(type) {
	case string:
		ref := Table(t)
		return ref, ref.Err()
	case Hybrid:
		if t.left == nil {
			return Table(""), formatErrorf("join operand is an empty hybrid")
		}
		return t, t.err
	case TableRef:
		return t, t.Err()
	default:
		return Table(""), formatErrorf("unsupported table operand %T", v)
	}
}

// Op is a comparison operator usable with FieldRef.Compare.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// FieldRef is a column qualified by its model's registry token.
type FieldRef struct {
	Table string
	Name  string
}

// Field returns a reference to table.field, rendered as _table_.field.
func Field(table, field string) FieldRef {
	return FieldRef{Table: table, Name: field}
}

func (f FieldRef) String() string { return Table(f.Table).String() + "." + f.Name }

// Compare renders "field op rhs". rhs may be a literal, another FieldRef,
// or nil: OpEq and OpNe against nil, including a typed nil pointer, render
// IS NULL and IS NOT NULL.
func (f FieldRef) Compare(op Op, rhs any) string {
	if isNil(rhs) {
		switch op {
		case OpEq:
			return f.String() + " IS NULL"
		case OpNe:
			return f.String() + " IS NOT NULL"
		}
	}
	return f.String() + " " + string(op) + " " + formatValue(rhs)
}

func (f FieldRef) Eq(rhs any) string { return f.Compare(OpEq, rhs) }
func (f FieldRef) Ne(rhs any) string { return f.Compare(OpNe, rhs) }
func (f FieldRef) Lt(rhs any) string { return f.Compare(OpLt, rhs) }
func (f FieldRef) Le(rhs any) string { return f.Compare(OpLe, rhs) }
func (f FieldRef) Gt(rhs any) string { return f.Compare(OpGt, rhs) }
func (f FieldRef) Ge(rhs any) string { return f.Compare(OpGe, rhs) }
