package sql

// SQLiteGrammar compiles eager limits for SQLite.
//
// SQLite 3.25 and later support ROW_NUMBER. Grammars created with
// WithWindowFunctions(false) use the correlated-subquery rewrite for
// older engines.
type SQLiteGrammar struct {
	baseGrammar
	legacy bool
}

// WindowFunctions reports whether the grammar uses ROW_NUMBER.
func (g *SQLiteGrammar) WindowFunctions() bool { return !g.legacy }

// Select returns a new selector bound to the grammar.
func (g *SQLiteGrammar) Select(columns ...string) *Selector {
	return newSelector(g, columns)
}

// Rewrite compiles base limited per group.
func (g *SQLiteGrammar) Rewrite(base *Selector, l *EagerLimit) (string, []any, error) {
	return rewrite(g, base, l)
}

func (g *SQLiteGrammar) writeEagerLimit(b *Builder, base *Selector, l *EagerLimit) {
	if g.legacy {
		writeCorrelated(b, base, l)
		return
	}
	writeRowNumber(b, base, l)
}
