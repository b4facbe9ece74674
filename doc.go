// Package eagerlimit loads related rows for a batch of parents in one
// query while applying LIMIT and OFFSET per parent instead of to the
// whole result.
//
// A Client resolves the grammar of its driver once:
//
//	drv, err := sql.Open("pgx", dsn)
//	if err != nil {
//		return err
//	}
//	client, err := eagerlimit.NewClient(drv, eagerlimit.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
// Relations are described by their shape and table names; key columns
// follow the usual naming conventions unless set explicitly:
//
//	rel, err := eagerlimit.HasMany(eagerlimit.EdgeSpec{Parent: "posts", Related: "comments"})
//	if err != nil {
//		return err
//	}
//	rel.Limit(3).OrderBy(sql.Desc("created_at"))
//
//	nb, err := client.Load(ctx, rel, 1, 2, 3)
//	if err != nil {
//		return err
//	}
//	for _, c := range nb.Of(1) {
//		fmt.Println(c["id"], c["body"])
//	}
//
// On engines with window functions the query numbers the rows of every
// parent with ROW_NUMBER and keeps the requested range. On MySQL before 8
// and old SQLite versions a correlated COUNT(*) ranks the rows instead,
// which requires a unique tiebreak column.
//
// Config, LoadConfig and Open build a client from a YAML file and the
// environment. Groups adapts a relation to the dataloader package.
package eagerlimit
