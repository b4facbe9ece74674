package sql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/syssam/eagerlimit/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// sqlWriter is implemented by builders that can render themselves into
// a parent builder, continuing its placeholder numbering.
type sqlWriter interface {
	writeSQL(b *Builder)
}

// Builder is the base query builder for the sql dsl. It tracks the
// dialect family for identifier quoting and placeholder formatting, and
// the table prefix applied to table names.
type Builder struct {
	sb      *strings.Builder
	args    []any
	total   int // number of arguments written before this builder.
	errs    []error
	family  dialect.Family
	prefix  string
	aliases map[string]struct{}
}

// newBuilder returns a builder for the given family and prefix.
func newBuilder(f dialect.Family, prefix string) *Builder {
	return &Builder{sb: &strings.Builder{}, family: f, prefix: prefix}
}

func (b *Builder) init() {
	if b.sb == nil {
		b.sb = &strings.Builder{}
	}
}

// Family returns the dialect family of the builder.
func (b *Builder) Family() dialect.Family { return b.family }

// Dialect returns the canonical dialect name of the builder.
func (b *Builder) Dialect() string { return b.family.String() }

// TablePrefix returns the prefix applied to table names.
func (b *Builder) TablePrefix() string { return b.prefix }

// AddError appends an error to the builder errors.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns a concatenated error of all errors encountered during
// the query-building, or were added manually by calling AddError.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// WriteString writes the given string as is.
func (b *Builder) WriteString(s string) *Builder {
	b.init()
	b.sb.WriteString(s)
	return b
}

// WriteByte writes the given byte as is.
func (b *Builder) WriteByte(c byte) *Builder {
	b.init()
	b.sb.WriteByte(c)
	return b
}

// Pad adds a space to the query.
func (b *Builder) Pad() *Builder {
	return b.WriteByte(' ')
}

// String returns the accumulated string.
func (b *Builder) String() string {
	if b.sb == nil {
		return ""
	}
	return b.sb.String()
}

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.args
}

// Quote quotes a single identifier for the builder dialect.
func (b *Builder) Quote(ident string) string {
	return quote(b.family, ident)
}

func quote(f dialect.Family, ident string) string {
	switch f {
	case dialect.FamilyMySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case dialect.FamilySQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// isRawExpr reports whether the string is an expression rather than
// a (possibly qualified) identifier.
func isRawExpr(s string) bool {
	return strings.ContainsAny(s, "()` \"[]'+-/,")
}

// Ident appends the given identifier. Qualified identifiers are quoted
// segment by segment, and the qualifier receives the table prefix unless
// it is a declared alias.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "" || s == "*":
		return b.WriteString(s)
	case isRawExpr(s):
		return b.WriteString(s)
	}
	if i := strings.LastIndexByte(s, '.'); i > 0 {
		b.WriteString(b.qualifier(s[:i])).WriteByte('.')
		s = s[i+1:]
		if s == "*" {
			return b.WriteString(s)
		}
	}
	return b.WriteString(b.Quote(s))
}

// qualifier quotes a table qualifier, applying the table prefix.
func (b *Builder) qualifier(q string) string {
	var schema string
	if i := strings.LastIndexByte(q, '.'); i > 0 {
		schema, q = b.Quote(q[:i])+".", q[i+1:]
	}
	if _, ok := b.aliases[q]; !ok {
		q = b.prefix + q
	}
	return schema + b.Quote(q)
}

// IdentComma calls Ident on all arguments and adds a comma between them.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s[i])
	}
	return b
}

// AliasIdent writes "alias"."column" without applying the table prefix.
func (b *Builder) AliasIdent(alias, column string) *Builder {
	b.WriteString(b.Quote(alias)).WriteByte('.')
	if column == "*" {
		return b.WriteString(column)
	}
	return b.WriteString(b.Quote(column))
}

// Table writes a table name with the table prefix applied.
func (b *Builder) Table(name string) *Builder {
	if isRawExpr(name) {
		return b.WriteString(name)
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		// schema-qualified.
		return b.WriteString(b.Quote(name[:i])).WriteByte('.').WriteString(b.Quote(b.prefix + name[i+1:]))
	}
	return b.WriteString(b.Quote(b.prefix + name))
}

// declareAlias registers an alias that must not receive the table prefix.
func (b *Builder) declareAlias(a string) {
	if a == "" {
		return
	}
	if b.aliases == nil {
		b.aliases = make(map[string]struct{})
	}
	b.aliases[a] = struct{}{}
}

// Comma adds a comma to the query.
func (b *Builder) Comma() *Builder {
	return b.WriteString(", ")
}

// placeholder returns the n-th (1-based) placeholder for the dialect.
func placeholder(f dialect.Family, n int) string {
	switch f {
	case dialect.FamilyPostgres:
		return "$" + strconv.Itoa(n)
	case dialect.FamilySQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Arg appends an input argument to the builder.
func (b *Builder) Arg(a any) *Builder {
	b.args = append(b.args, a)
	return b.WriteString(placeholder(b.family, b.total+len(b.args)))
}

// Args appends a list of arguments to the builder.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.Comma()
		}
		b.Arg(a[i])
	}
	return b
}

// Join joins a list of Queries to the builder. Builders of this package
// are rendered in place so placeholder numbering stays sequential.
func (b *Builder) Join(qs ...Querier) *Builder {
	for _, q := range qs {
		b.join(q)
	}
	return b
}

func (b *Builder) join(q Querier) {
	if w, ok := q.(sqlWriter); ok {
		w.writeSQL(b)
		return
	}
	query, args := q.Query()
	b.WriteString(query)
	b.args = append(b.args, args...)
}

// Wrap gets a callback, and wraps its result with parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// Raw is a raw SQL fragment without arguments.
type Raw string

// Query implements the Querier interface.
func (r Raw) Query() (string, []any) { return string(r), nil }

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(column string) OrderTerm { return OrderTerm{Column: column} }

// Desc returns a descending order term.
func Desc(column string) OrderTerm { return OrderTerm{Column: column, Desc: true} }

// ParseOrder parses terms of the form "column" or "column desc".
func ParseOrder(s string) (OrderTerm, error) {
	fields := strings.Fields(s)
	switch {
	case len(fields) == 1:
		return Asc(fields[0]), nil
	case len(fields) == 2 && strings.EqualFold(fields[1], "asc"):
		return Asc(fields[0]), nil
	case len(fields) == 2 && strings.EqualFold(fields[1], "desc"):
		return Desc(fields[0]), nil
	}
	return OrderTerm{}, errors.New("dialect/sql: invalid order term " + strconv.Quote(s))
}

// String returns the term in "column [DESC]" form.
func (o OrderTerm) String() string {
	if o.Desc {
		return o.Column + " DESC"
	}
	return o.Column
}

func (b *Builder) orderTerm(o OrderTerm) *Builder {
	b.Ident(o.Column)
	if o.Desc {
		b.WriteString(" DESC")
	}
	return b
}
