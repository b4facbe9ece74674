package sql

// SQLServerGrammar compiles eager limits for SQL Server with ROW_NUMBER.
// Derived tables never carry ORDER BY, which SQL Server rejects without
// TOP or OFFSET.
type SQLServerGrammar struct {
	baseGrammar
}

// Select returns a new selector bound to the grammar.
func (g *SQLServerGrammar) Select(columns ...string) *Selector {
	return newSelector(g, columns)
}

// Rewrite compiles base limited per group.
func (g *SQLServerGrammar) Rewrite(base *Selector, l *EagerLimit) (string, []any, error) {
	return rewrite(g, base, l)
}

func (g *SQLServerGrammar) writeEagerLimit(b *Builder, base *Selector, l *EagerLimit) {
	writeRowNumber(b, base, l)
}
