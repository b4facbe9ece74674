package sql

// MySQLGrammar compiles eager limits for MySQL and MariaDB.
//
// Window functions are only available from MySQL 8.0 and MariaDB 10.2, so
// the grammar uses the correlated-subquery rewrite unless it was created
// with WithWindowFunctions(true).
type MySQLGrammar struct {
	baseGrammar
	window bool
}

// WindowFunctions reports whether the grammar uses ROW_NUMBER.
func (g *MySQLGrammar) WindowFunctions() bool { return g.window }

// Select returns a new selector bound to the grammar.
func (g *MySQLGrammar) Select(columns ...string) *Selector {
	return newSelector(g, columns)
}

// Rewrite compiles base limited per group.
func (g *MySQLGrammar) Rewrite(base *Selector, l *EagerLimit) (string, []any, error) {
	return rewrite(g, base, l)
}

func (g *MySQLGrammar) writeEagerLimit(b *Builder, base *Selector, l *EagerLimit) {
	if g.window {
		writeRowNumber(b, base, l)
		return
	}
	writeCorrelated(b, base, l)
}
