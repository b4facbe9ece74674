package sql

import (
	"errors"
	"strconv"

	"github.com/syssam/eagerlimit/dialect"
)

// TableView is a view that returns a table view. Can be a Table or a Selector.
type TableView interface {
	view()
}

// SelectTable is a table selector.
type SelectTable struct {
	name string
	as   string
}

// Table returns a new table selector.
//
//	t1 := Table("users").As("u")
//	return Select(t1.C("name"))
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As adds the AS clause to the table selector.
func (s *SelectTable) As(alias string) *SelectTable {
	s.as = alias
	return s
}

// C returns a formatted string for the table column.
func (s *SelectTable) C(column string) string {
	name := s.name
	if s.as != "" {
		name = s.as
	}
	return name + "." + column
}

// Name returns the table name.
func (s *SelectTable) Name() string { return s.name }

func (*SelectTable) view() {}

type selection struct {
	c  string
	as string
}

type join struct {
	kind  string
	table TableView
	on    *Predicate
}

type setOp struct {
	kind string
	s    *Selector
}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	Builder
	grammar    Grammar
	as         string
	selection  []selection
	distinct   bool
	from       TableView
	joins      []join
	where      *Predicate
	group      []string
	having     *Predicate
	setOps     []setOp
	order      []OrderTerm
	limit      *int
	offset     *int
	eager      *EagerLimit
	renderErrs []error
}

// Select returns a new selector for the `SELECT` statement without a
// bound grammar. It renders with ANSI quoting and "?" placeholders, and
// cannot compile an eager limit.
func Select(columns ...string) *Selector {
	return (&Selector{}).Select(columns...)
}

func newSelector(g Grammar, columns []string) *Selector {
	s := &Selector{
		Builder: Builder{family: g.Family(), prefix: g.TablePrefix()},
		grammar: g,
	}
	return s.Select(columns...)
}

// Grammar returns the grammar the selector compiles with.
func (s *Selector) Grammar() Grammar { return s.grammar }

// Select changes the columns selection of the SELECT statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.selection = s.selection[:0]
	return s.AppendSelect(columns...)
}

// AppendSelect appends additional columns to the SELECT statement.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	for _, c := range columns {
		s.selection = append(s.selection, selection{c: c})
	}
	return s
}

// AppendSelectAs appends an additional column with the given alias.
func (s *Selector) AppendSelectAs(column, as string) *Selector {
	s.selection = append(s.selection, selection{c: column, as: as})
	return s
}

// SelectedColumns returns the selected columns in the Selector.
func (s *Selector) SelectedColumns() []string {
	columns := make([]string, 0, len(s.selection))
	for _, sel := range s.selection {
		if sel.as != "" {
			columns = append(columns, sel.as)
		} else {
			columns = append(columns, sel.c)
		}
	}
	return columns
}

// Distinct adds the DISTINCT keyword to the `SELECT` statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the source of `FROM` clause.
func (s *Selector) From(t TableView) *Selector {
	s.from = t
	return s
}

// Table returns the selected table.
func (s *Selector) Table() *SelectTable {
	t, _ := s.from.(*SelectTable)
	return t
}

// As gives this selection an alias, used when it is nested in a FROM clause.
func (s *Selector) As(alias string) *Selector {
	s.as = alias
	return s
}

// C returns a formatted string for a selected column from this statement.
func (s *Selector) C(column string) string {
	switch {
	case s.as != "":
		return s.as + "." + column
	case s.Table() != nil:
		return s.Table().C(column)
	}
	return column
}

func (*Selector) view() {}

// Join appends a `JOIN` clause to the statement.
func (s *Selector) Join(t TableView) *Selector {
	return s.join("JOIN", t)
}

// LeftJoin appends a `LEFT JOIN` clause to the statement.
func (s *Selector) LeftJoin(t TableView) *Selector {
	return s.join("LEFT JOIN", t)
}

func (s *Selector) join(kind string, t TableView) *Selector {
	s.joins = append(s.joins, join{kind: kind, table: t})
	return s
}

// On sets the `ON` clause of the last `JOIN` to the equality of two columns.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP sets or extends the `ON` predicate of the last `JOIN`.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) == 0 {
		s.AddError(errors.New("dialect/sql: ON clause without JOIN"))
		return s
	}
	j := &s.joins[len(s.joins)-1]
	j.on = And(j.on, p)
	return s
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p *Predicate) *Selector {
	s.where = And(s.where, p)
	return s
}

// P returns the predicate of the statement.
func (s *Selector) P() *Predicate {
	return s.where
}

// GroupBy appends the `GROUP BY` clause to the `SELECT` statement.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.group = append(s.group, columns...)
	return s
}

// Having appends a predicate for the `HAVING` clause.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = And(s.having, p)
	return s
}

// Union appends the UNION clause to the query.
func (s *Selector) Union(t *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{kind: "UNION", s: t})
	return s
}

// UnionAll appends the UNION ALL clause to the query.
func (s *Selector) UnionAll(t *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{kind: "UNION ALL", s: t})
	return s
}

// OrderBy appends the `ORDER BY` clause to the `SELECT` statement.
func (s *Selector) OrderBy(terms ...OrderTerm) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// OrderTerms returns the terms of the `ORDER BY` clause.
func (s *Selector) OrderTerms() []OrderTerm {
	return append([]OrderTerm(nil), s.order...)
}

// ClearOrder clears the ORDER BY clause.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit adds the `LIMIT` clause to the `SELECT` statement.
func (s *Selector) Limit(limit int) *Selector {
	s.limit = &limit
	return s
}

// Offset adds the `OFFSET` clause to the `SELECT` statement.
func (s *Selector) Offset(offset int) *Selector {
	s.offset = &offset
	return s
}

// Clone returns a duplicate of the selector, including its eager limit.
func (s *Selector) Clone() *Selector {
	if s == nil {
		return nil
	}
	c := *s
	c.Builder = Builder{family: s.family, prefix: s.prefix, total: s.total, errs: append([]error(nil), s.errs...)}
	c.selection = append([]selection(nil), s.selection...)
	c.joins = append([]join(nil), s.joins...)
	c.group = append([]string(nil), s.group...)
	c.setOps = append([]setOp(nil), s.setOps...)
	c.order = append([]OrderTerm(nil), s.order...)
	c.renderErrs = nil
	if s.eager != nil {
		c.eager = s.eager.clone()
	}
	return &c
}

// Err returns the errors collected while building or rendering the
// statement.
func (s *Selector) Err() error {
	return errors.Join(append(append([]error(nil), s.errs...), s.renderErrs...)...)
}

// Query returns query representation of a `SELECT` statement. Without an
// eager limit this is the plain statement. With one, the statement is
// compiled by the selector grammar into its per-group rewrite.
func (s *Selector) Query() (string, []any) {
	b := newBuilder(s.family, s.prefix)
	b.total = s.total
	s.writeSQL(b)
	s.renderErrs = b.errs
	return b.String(), b.args
}

func (s *Selector) writeSQL(b *Builder) {
	if s.eager == nil {
		s.writeSelect(b, true)
		return
	}
	if s.grammar == nil {
		b.AddError(ErrNoGrammar)
		s.writeSelect(b, true)
		return
	}
	s.grammar.writeEagerLimit(b, s, s.eager)
}

// writeSelect renders the statement. The tail (ORDER BY, LIMIT, OFFSET)
// is omitted when the statement is wrapped by an eager limit rewrite or
// is a member of a set operation.
func (s *Selector) writeSelect(b *Builder, tail bool) {
	s.declareAliases(b)
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.selection) == 0 {
		b.WriteByte('*')
	}
	for i, sel := range s.selection {
		if i > 0 {
			b.Comma()
		}
		b.Ident(sel.c)
		if sel.as != "" {
			b.WriteString(" AS ").WriteString(b.Quote(sel.as))
		}
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		writeView(b, s.from)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		writeView(b, j.table)
		if j.on != nil {
			b.WriteString(" ON ").Join(j.on)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ").Join(s.where)
	}
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ").IdentComma(s.group...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ").Join(s.having)
	}
	for _, op := range s.setOps {
		b.Pad().WriteString(op.kind).Pad()
		op.s.writeSelect(b, false)
	}
	if tail {
		s.writeTail(b)
	}
}

func (s *Selector) declareAliases(b *Builder) {
	declare := func(t TableView) {
		switch t := t.(type) {
		case *SelectTable:
			b.declareAlias(t.as)
		case *Selector:
			b.declareAlias(t.as)
		}
	}
	declare(s.from)
	for _, j := range s.joins {
		declare(j.table)
	}
}

func writeView(b *Builder, t TableView) {
	switch t := t.(type) {
	case *SelectTable:
		b.Table(t.name)
		if t.as != "" {
			b.WriteString(" AS ").WriteString(b.Quote(t.as))
		}
	case *Selector:
		if t.as == "" {
			b.AddError(errors.New("dialect/sql: derived table requires an alias"))
		}
		b.Wrap(t.writeSQL)
		b.WriteString(" AS ").WriteString(b.Quote(t.as))
	}
}

// maxMySQLRows is the documented MySQL idiom for an offset without a limit.
const maxMySQLRows = "18446744073709551615"

func (s *Selector) writeTail(b *Builder) {
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.order {
			if i > 0 {
				b.Comma()
			}
			b.orderTerm(o)
		}
	}
	if s.limit == nil && s.offset == nil {
		return
	}
	switch b.family {
	case dialect.FamilySQLServer:
		if len(s.order) == 0 {
			b.WriteString(" ORDER BY (SELECT NULL)")
		}
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(deref(s.offset))).WriteString(" ROWS")
		if s.limit != nil {
			b.WriteString(" FETCH NEXT ").WriteString(strconv.Itoa(*s.limit)).WriteString(" ROWS ONLY")
		}
		return
	case dialect.FamilyMySQL:
		if s.limit == nil {
			b.WriteString(" LIMIT " + maxMySQLRows)
		}
	case dialect.FamilySQLite:
		if s.limit == nil {
			b.WriteString(" LIMIT -1")
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
