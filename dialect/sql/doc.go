// Package sql provides the SELECT builder and the per-dialect grammars
// that compile a per-group LIMIT/OFFSET for eager loading.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting,
//     table prefixing and dialect placeholders
//   - Selector: SELECT statement builder with joins, predicates, grouping,
//     set operations and pagination
//   - Predicate: WHERE/HAVING conditions (EQ, In, Like, And, Or, ExprP, ...)
//
// # Grammars
//
// A Grammar binds selectors to one engine family:
//
//	g, err := sql.GrammarFor("pgx", sql.WithTablePrefix("app_"))
//	s := g.Select("comments.*").
//	    From(sql.Table("comments")).
//	    Where(sql.In("comments.post_id", 1, 2, 3))
//
// Postgres, SQL Server and SQLite rank rows with ROW_NUMBER. MySQL ranks
// rows with a correlated COUNT(*) subquery unless WithWindowFunctions(true)
// is given, and SQLite falls back to it with WithWindowFunctions(false).
//
// # Eager Limits
//
// An EagerLimit restricts the rows of every group, rather than the whole
// result set:
//
//	err := s.SetEagerLimit(sql.PartitionBy("comments.post_id").
//	    SetLimit(3).
//	    SetOffset(1).
//	    OrderBy(sql.Desc("comments.created_at")).
//	    TiebreakBy("id"))
//	query, args := s.Query()
//
// The compiled statement wraps the base statement in a derived table named
// DerivedTable. Row-numbering rewrites expose the rank as RowNumberColumn,
// which callers drop when scanning. The base statement's ORDER BY, LIMIT
// and OFFSET are not applied; its ORDER BY becomes the group order when
// the eager limit has none.
//
// # Drivers
//
// Driver wraps a *sql.DB and resolves its family once:
//
//	drv, err := sql.Open("mysql", dsn)
//	g, err := drv.Grammar()
//
// StatsDriver and DebugDriver decorate any dialect.Driver with statement
// statistics and log/slog statement logging.
package sql
