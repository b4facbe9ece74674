package sql

// PostgresGrammar compiles eager limits for PostgreSQL with ROW_NUMBER.
type PostgresGrammar struct {
	baseGrammar
}

// Select returns a new selector bound to the grammar.
func (g *PostgresGrammar) Select(columns ...string) *Selector {
	return newSelector(g, columns)
}

// Rewrite compiles base limited per group.
func (g *PostgresGrammar) Rewrite(base *Selector, l *EagerLimit) (string, []any, error) {
	return rewrite(g, base, l)
}

func (g *PostgresGrammar) writeEagerLimit(b *Builder, base *Selector, l *EagerLimit) {
	writeRowNumber(b, base, l)
}
