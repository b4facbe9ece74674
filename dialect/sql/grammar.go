package sql

import (
	"errors"

	"github.com/syssam/eagerlimit/dialect"
)

// Names used by the eager limit rewrites. The row number column is part
// of the result set of row-numbering rewrites.
const (
	DerivedTable    = "eager_limit_table"
	RankedTable     = "eager_limit_ranked"
	PeerTable       = "eager_limit_peer"
	RowNumberColumn = "eager_limit_row"
)

// Grammar compiles eager limits for one engine family. Grammars are
// immutable and safe for concurrent use.
type Grammar interface {
	// Family returns the engine family of the grammar.
	Family() dialect.Family
	// Dialect returns the canonical dialect name.
	Dialect() string
	// TablePrefix returns the prefix applied to table names.
	TablePrefix() string
	// Select returns a new selector bound to the grammar.
	Select(columns ...string) *Selector
	// Rewrite compiles the base statement limited per group. The base
	// statement's own ORDER BY, LIMIT and OFFSET are not rendered; its
	// ORDER BY terms serve as the group order when l has none.
	Rewrite(base *Selector, l *EagerLimit) (string, []any, error)

	writeEagerLimit(b *Builder, base *Selector, l *EagerLimit)
}

// GrammarOption configures a grammar.
type GrammarOption func(*grammarConfig)

type grammarConfig struct {
	prefix string
	window *bool
}

// WithTablePrefix sets the prefix applied to all table names, as
// configured on the connection.
func WithTablePrefix(prefix string) GrammarOption {
	return func(c *grammarConfig) {
		c.prefix = prefix
	}
}

// WithWindowFunctions overrides whether the engine supports ROW_NUMBER.
// It enables the row-numbering rewrite on MySQL 8 and selects the
// correlated-subquery rewrite on SQLite versions before 3.25. Postgres
// and SQL Server always use row numbering.
func WithWindowFunctions(enabled bool) GrammarOption {
	return func(c *grammarConfig) {
		c.window = &enabled
	}
}

// GrammarFor resolves the grammar for a driver name.
func GrammarFor(driverName string, opts ...GrammarOption) (Grammar, error) {
	f, err := dialect.ParseFamily(driverName)
	if err != nil {
		return nil, err
	}
	return NewGrammar(f, opts...)
}

// NewGrammar returns the grammar of the given family.
func NewGrammar(f dialect.Family, opts ...GrammarOption) (Grammar, error) {
	cfg := &grammarConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	base := baseGrammar{family: f, prefix: cfg.prefix}
	switch f {
	case dialect.FamilyMySQL:
		return &MySQLGrammar{baseGrammar: base, window: cfg.window != nil && *cfg.window}, nil
	case dialect.FamilyPostgres:
		return &PostgresGrammar{baseGrammar: base}, nil
	case dialect.FamilySQLite:
		return &SQLiteGrammar{baseGrammar: base, legacy: cfg.window != nil && !*cfg.window}, nil
	case dialect.FamilySQLServer:
		return &SQLServerGrammar{baseGrammar: base}, nil
	default:
		return nil, &dialect.UnsupportedDialectError{Driver: f.String()}
	}
}

type baseGrammar struct {
	family dialect.Family
	prefix string
}

func (g baseGrammar) Family() dialect.Family { return g.family }
func (g baseGrammar) Dialect() string        { return g.family.String() }
func (g baseGrammar) TablePrefix() string    { return g.prefix }

// rewrite renders base limited per group with the given grammar.
func rewrite(g Grammar, base *Selector, l *EagerLimit) (string, []any, error) {
	if base == nil {
		return "", nil, errors.New("dialect/sql: rewrite of nil selector")
	}
	if err := l.Validate(); err != nil {
		return "", nil, err
	}
	b := newBuilder(g.Family(), g.TablePrefix())
	b.errs = append(b.errs, base.errs...)
	g.writeEagerLimit(b, base, l)
	if err := b.Err(); err != nil {
		return "", nil, err
	}
	return b.String(), b.args, nil
}

// writeRowNumber writes the row-numbering rewrite:
//
//	SELECT * FROM (
//		SELECT t.*, ROW_NUMBER() OVER (PARTITION BY <p> ORDER BY <o>) AS r
//		FROM (<base>) AS t
//	) AS ranked WHERE ranked.r BETWEEN offset+1 AND offset+limit
//	ORDER BY <p>, r
func writeRowNumber(b *Builder, base *Selector, l *EagerLimit) {
	order := sortKeys(base, l)
	if len(order) == 0 {
		for _, c := range l.Partition {
			order = append(order, Asc(c))
		}
	}
	b.WriteString("SELECT * FROM (SELECT ").AliasIdent(DerivedTable, "*")
	b.WriteString(", ROW_NUMBER() OVER (PARTITION BY ")
	for i, c := range l.Partition {
		if i > 0 {
			b.Comma()
		}
		b.AliasIdent(DerivedTable, columnName(c))
	}
	b.WriteString(" ORDER BY ")
	writeAliasOrder(b, DerivedTable, order)
	b.WriteString(") AS ").WriteString(b.Quote(RowNumberColumn)).WriteString(" FROM ")
	b.Wrap(func(b *Builder) { base.writeSelect(b, false) })
	b.WriteString(" AS ").WriteString(b.Quote(DerivedTable))
	b.WriteString(") AS ").WriteString(b.Quote(RankedTable))
	b.WriteString(" WHERE ").AliasIdent(RankedTable, RowNumberColumn)
	offset := deref(l.Offset)
	if l.Limit != nil {
		b.WriteString(" BETWEEN ").Arg(offset + 1).WriteString(" AND ").Arg(offset + *l.Limit)
	} else {
		b.WriteString(" > ").Arg(offset)
	}
	b.WriteString(" ORDER BY ")
	for _, c := range l.Partition {
		b.AliasIdent(RankedTable, columnName(c)).Comma()
	}
	b.AliasIdent(RankedTable, RowNumberColumn)
}

// errCorrelatedOrder is reported when the correlated rewrite has no
// unique column to make the rank of a row exact.
var errCorrelatedOrder = errors.New("dialect/sql: correlated eager limit requires a unique tiebreak column")

// writeCorrelated writes the correlated-subquery rewrite used by engines
// without window functions. The rank of a row is the number of peers in
// its group that sort strictly before it:
//
//	SELECT t.* FROM (<base>) AS t
//	WHERE (SELECT COUNT(*) FROM (<base>) AS peer
//		WHERE peer.<p> = t.<p> AND <peer precedes t>) BETWEEN offset AND offset+limit-1
//	ORDER BY <p>, <o>
//
// Ranks are distinct only if the order ends with a unique column, so the
// tiebreak is required. Comparisons follow the engine's NULL order: NULLs
// sort first ascending and last descending.
// Each row scans its whole group, O(n²) per group.
func writeCorrelated(b *Builder, base *Selector, l *EagerLimit) {
	keys := sortKeys(base, l)
	if len(keys) == 0 || !hasTiebreak(l) {
		b.AddError(errCorrelatedOrder)
	}
	b.WriteString("SELECT ").AliasIdent(DerivedTable, "*").WriteString(" FROM ")
	b.Wrap(func(b *Builder) { base.writeSelect(b, false) })
	b.WriteString(" AS ").WriteString(b.Quote(DerivedTable))
	b.WriteString(" WHERE (SELECT COUNT(*) FROM ")
	b.Wrap(func(b *Builder) { base.writeSelect(b, false) })
	b.WriteString(" AS ").WriteString(b.Quote(PeerTable)).WriteString(" WHERE ")
	for i, c := range l.Partition {
		if i > 0 {
			b.WriteString(" AND ")
		}
		c = columnName(c)
		b.AliasIdent(PeerTable, c).WriteString(" = ").AliasIdent(DerivedTable, c)
	}
	if len(keys) > 0 {
		b.WriteString(" AND ").Wrap(func(b *Builder) { writePrecedes(b, keys) })
	}
	b.WriteByte(')')
	offset := deref(l.Offset)
	if l.Limit != nil {
		b.WriteString(" BETWEEN ").Arg(offset).WriteString(" AND ").Arg(offset + *l.Limit - 1)
	} else {
		b.WriteString(" >= ").Arg(offset)
	}
	b.WriteString(" ORDER BY ")
	for _, c := range l.Partition {
		b.AliasIdent(DerivedTable, columnName(c)).Comma()
	}
	writeAliasOrder(b, DerivedTable, keys)
}

// hasTiebreak reports whether the tiebreak of l is part of the sort keys.
// A tiebreak that is also a partition column cannot order a group.
func hasTiebreak(l *EagerLimit) bool {
	if l.Tiebreak == "" {
		return false
	}
	t := columnName(l.Tiebreak)
	for _, c := range l.Partition {
		if columnName(c) == t {
			return false
		}
	}
	return true
}

// writePrecedes writes the lexicographic "peer sorts before row" condition.
func writePrecedes(b *Builder, keys []OrderTerm) {
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('(')
		for _, eq := range keys[:i] {
			writeNullSafeEQ(b, eq.Column)
			b.WriteString(" AND ")
		}
		writeBefore(b, k)
		b.WriteByte(')')
	}
}

// writeNullSafeEQ writes an equality that holds when both sides are NULL.
func writeNullSafeEQ(b *Builder, column string) {
	op := " IS "
	if b.family == dialect.FamilyMySQL {
		op = " <=> "
	}
	b.AliasIdent(PeerTable, column).WriteString(op).AliasIdent(DerivedTable, column)
}

// writeBefore writes "peer sorts before row" on one column, with NULLs
// sorting first ascending and last descending.
func writeBefore(b *Builder, k OrderTerm) {
	peer, row := func() { b.AliasIdent(PeerTable, k.Column) }, func() { b.AliasIdent(DerivedTable, k.Column) }
	op, first, second := " < ", peer, row
	if k.Desc {
		op, first, second = " > ", row, peer
	}
	b.WriteByte('(')
	peer()
	b.WriteString(op)
	row()
	b.WriteString(" OR (")
	first()
	b.WriteString(" IS NULL AND ")
	second()
	b.WriteString(" IS NOT NULL))")
}

func writeAliasOrder(b *Builder, alias string, terms []OrderTerm) {
	for i, o := range terms {
		if i > 0 {
			b.Comma()
		}
		b.AliasIdent(alias, columnName(o.Column))
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
}
