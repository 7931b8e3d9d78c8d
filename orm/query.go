package orm

import (
	"strconv"
	"strings"

	"github.com/mickamy/kanboard/scope"
)

// ClauseKind identifies the leading keyword of a Clause.
type ClauseKind int

const (
	ClauseSelect ClauseKind = iota
	ClauseInsert
	ClauseValues
	ClauseFrom
	ClauseWhere
	ClauseAnd
	ClauseOr
	ClauseOrderBy
	ClauseLimit
	ClauseOffset
	ClauseRaw
)

var clauseKeywords = [...]string{
	ClauseSelect:  "SELECT",
	ClauseInsert:  "INSERT INTO",
	ClauseValues:  "VALUES",
	ClauseFrom:    "FROM",
	ClauseWhere:   "WHERE",
	ClauseAnd:     "AND",
	ClauseOr:      "OR",
	ClauseOrderBy: "ORDER BY",
	ClauseLimit:   "LIMIT",
	ClauseOffset:  "OFFSET",
	ClauseRaw:     "",
}

func (k ClauseKind) String() string {
	if k == ClauseRaw {
		return "RAW"
	}
	return clauseKeywords[k]
}

// Clause is one line of a query.
type Clause struct {
	Kind  ClauseKind
	Table TableRef // set for ClauseInsert and ClauseFrom
	Text  string
}

func (c Clause) render(app string) string {
	switch c.Kind {
	case ClauseRaw:
		return c.Text
	case ClauseFrom:
		return "FROM " + c.Table.render(app)
	case ClauseInsert:
		return "INSERT INTO " + c.Table.render(app) + " " + c.Text
	default:
		return clauseKeywords[c.Kind] + " " + c.Text
	}
}

// Statement is a rendered query ready for execution: SQL with "?" bind
// placeholders and the matching arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Builder assembles a query clause by clause.
// All builder methods return a new Builder; the receiver is never modified,
// so a declared Builder can be shared between goroutines.
//
// Construction errors do not break the chain: the first one is kept and
// returned by Err, Render, and Build.
type Builder struct {
	clauses []Clause
	app     string
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// clone returns a shallow copy with the clause slice copied to avoid aliasing.
func (b *Builder) clone() *Builder {
	b2 := *b
	b2.clauses = append([]Clause(nil), b.clauses...)
	return &b2
}

func (b *Builder) add(c Clause, err error) *Builder {
	b2 := b.clone()
	b2.push(c, err)
	return b2
}

func (b *Builder) push(c Clause, err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
	b.clauses = append(b.clauses, c)
}

// --- Builder methods ---

// App makes simple table operands render as the physical "app_model" name
// instead of the registry token.
func (b *Builder) App(name string) *Builder {
	b2 := b.clone()
	b2.app = name
	return b2
}

// Select adds "SELECT cols". Columns may be strings, numbers, or any
// fmt.Stringer such as FieldRef.
func (b *Builder) Select(cols ...any) *Builder {
	return b.add(Clause{Kind: ClauseSelect, Text: joinArgs(cols)}, requireArgs("SELECT", cols))
}

// Insert adds "INSERT INTO table cols".
func (b *Builder) Insert(table any, cols ...any) *Builder {
	ref, err := toTable(table)
	if err == nil {
		err = requireArgs("INSERT", cols)
	}
	return b.add(Clause{Kind: ClauseInsert, Table: ref, Text: joinArgs(cols)}, err)
}

// Values adds "VALUES vals".
func (b *Builder) Values(vals ...any) *Builder {
	return b.add(Clause{Kind: ClauseValues, Text: joinArgs(vals)}, requireArgs("VALUES", vals))
}

// From adds "FROM table"; table is a model name or a TableRef.
func (b *Builder) From(table any) *Builder {
	ref, err := toTable(table)
	return b.add(Clause{Kind: ClauseFrom, Table: ref}, err)
}

func (b *Builder) Where(cond string) *Builder { return b.condition(ClauseWhere, cond) }

func (b *Builder) And(cond string) *Builder { return b.condition(ClauseAnd, cond) }

func (b *Builder) Or(cond string) *Builder { return b.condition(ClauseOr, cond) }

func (b *Builder) condition(kind ClauseKind, cond string) *Builder {
	var err error
	if strings.TrimSpace(cond) == "" {
		err = formatErrorf("%s condition cannot be empty", kind)
	}
	return b.add(Clause{Kind: kind, Text: cond}, err)
}

// OrderBy adds "ORDER BY cols".
func (b *Builder) OrderBy(cols ...any) *Builder {
	return b.add(Clause{Kind: ClauseOrderBy, Text: joinArgs(cols)}, requireArgs("ORDER BY", cols))
}

func (b *Builder) Limit(n int) *Builder { return b.add(counter(ClauseLimit, n)) }

func (b *Builder) Offset(n int) *Builder { return b.add(counter(ClauseOffset, n)) }

// Raw adds text verbatim as its own line.
func (b *Builder) Raw(text string) *Builder {
	var err error
	if strings.TrimSpace(text) == "" {
		err = formatErrorf("query string cannot be empty")
	}
	return b.add(Clause{Kind: ClauseRaw, Text: text}, err)
}

// Scopes applies the given scope.Scope values to the query.
func (b *Builder) Scopes(scopes ...scope.Scope) *Builder {
	b2 := b.clone()
	for _, s := range scopes {
		s.Apply(b2)
	}
	return b2
}

// --- scope.Applier implementation ---

// ApplyWhere adds a WHERE clause, or an AND clause when the query already
// has one, so independent scopes compose.
func (b *Builder) ApplyWhere(cond string) {
	kind := ClauseWhere
	for _, c := range b.clauses {
		if c.Kind == ClauseWhere {
			kind = ClauseAnd
			break
		}
	}
	b.push(Clause{Kind: kind, Text: cond}, nil)
}

func (b *Builder) ApplyAnd(cond string) { b.push(Clause{Kind: ClauseAnd, Text: cond}, nil) }
func (b *Builder) ApplyOr(cond string)  { b.push(Clause{Kind: ClauseOr, Text: cond}, nil) }

func (b *Builder) ApplyOrderBy(columns string) {
	b.push(Clause{Kind: ClauseOrderBy, Text: columns}, nil)
}

func (b *Builder) ApplyLimit(n int)  { b.push(counter(ClauseLimit, n)) }
func (b *Builder) ApplyOffset(n int) { b.push(counter(ClauseOffset, n)) }

var _ scope.Applier = (*Builder)(nil)

// --- Terminal methods ---

// Err returns the first construction error, if any.
func (b *Builder) Err() error { return b.err }

// Clauses returns a copy of the clause sequence.
func (b *Builder) Clauses() []Clause {
	return append([]Clause(nil), b.clauses...)
}

// Template returns the query text with placeholders left in place.
// Each clause is terminated by a newline.
func (b *Builder) Template() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if len(b.clauses) == 0 {
		return "", formatErrorf("empty query")
	}
	var sb strings.Builder
	for _, c := range b.clauses {
		sb.WriteString(c.render(b.app))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Render returns the query text with every placeholder replaced by the
// textual form of its value (see Substitute). Use it for inspection; Build
// is the form to execute.
func (b *Builder) Render(params Params) (string, error) {
	text, err := b.Template()
	if err != nil {
		return "", err
	}
	return Substitute(text, params)
}

// Build returns the query as a Statement with values bound (see Bind).
func (b *Builder) Build(params Params) (Statement, error) {
	text, err := b.Template()
	if err != nil {
		return Statement{}, err
	}
	query, args, err := Bind(text, params)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: query, Args: args}, nil
}

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func requireArgs(keyword string, args []any) error {
	if len(args) == 0 {
		return formatErrorf("%s requires at least one argument", keyword)
	}
	return nil
}

func counter(kind ClauseKind, n int) (Clause, error) {
	var err error
	if n < 0 {
		err = formatErrorf("%s cannot be negative", kind)
	}
	return Clause{Kind: kind, Text: strconv.Itoa(n)}, err
}
