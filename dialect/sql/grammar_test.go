package sql

import (
	"context"
	stdsql "database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"github.com/syssam/eagerlimit/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestGrammarFor(t *testing.T) {
	tests := []struct {
		driver string
		family dialect.Family
		window bool
	}{
		{"mysql", dialect.FamilyMySQL, false},
		{"mariadb", dialect.FamilyMySQL, false},
		{"pgsql", dialect.FamilyPostgres, true},
		{"pgx", dialect.FamilyPostgres, true},
		{"sqlite", dialect.FamilySQLite, true},
		{"sqlite3", dialect.FamilySQLite, true},
		{"sqlsrv", dialect.FamilySQLServer, true},
		{"postgres-otel", dialect.FamilyPostgres, true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			g, err := GrammarFor(tt.driver, WithTablePrefix("app_"))
			require.NoError(t, err)
			assert.Equal(t, tt.family, g.Family())
			assert.Equal(t, tt.family.String(), g.Dialect())
			assert.Equal(t, "app_", g.TablePrefix())
			assert.Same(t, g, g.Select().Grammar())
			if w, ok := g.(interface{ WindowFunctions() bool }); ok {
				assert.Equal(t, tt.window, w.WindowFunctions())
			}
		})
	}
}

func TestGrammarFor_Unsupported(t *testing.T) {
	for _, name := range []string{"oracle", "", "clickhouse"} {
		g, err := GrammarFor(name)
		require.Error(t, err)
		assert.Nil(t, g)
		assert.True(t, dialect.IsUnsupportedDialect(err))
	}
	_, err := NewGrammar(dialect.FamilyUnknown)
	assert.True(t, dialect.IsUnsupportedDialect(err))
}

func TestGrammar_WindowFunctionsOption(t *testing.T) {
	mysql8 := mustGrammar(t, dialect.FamilyMySQL, WithWindowFunctions(true))
	assert.True(t, mysql8.(*MySQLGrammar).WindowFunctions())
	legacy := mustGrammar(t, dialect.FamilySQLite, WithWindowFunctions(false))
	assert.False(t, legacy.(*SQLiteGrammar).WindowFunctions())
}

// commentsBase returns the base statement used by the rewrite tests.
func commentsBase(g Grammar) *Selector {
	return g.Select("comments.*").
		From(Table("comments")).
		Where(In("comments.post_id", 1, 2)).
		OrderBy(Asc("comments.body")).
		Limit(100)
}

func commentsLimit() *EagerLimit {
	return PartitionBy("comments.post_id").
		SetLimit(2).
		SetOffset(1).
		OrderBy(Desc("comments.created_at")).
		TiebreakBy("id")
}

func TestGrammar_Rewrite(t *testing.T) {
	tests := []struct {
		name    string
		family  dialect.Family
		opts    []GrammarOption
		want    string
		wantArg []any
	}{
		{
			name:    "postgres",
			family:  dialect.FamilyPostgres,
			want:    `SELECT * FROM (SELECT "eager_limit_table".*, ROW_NUMBER() OVER (PARTITION BY "eager_limit_table"."post_id" ORDER BY "eager_limit_table"."created_at" DESC, "eager_limit_table"."id") AS "eager_limit_row" FROM (SELECT "comments".* FROM "comments" WHERE "comments"."post_id" IN ($1, $2)) AS "eager_limit_table") AS "eager_limit_ranked" WHERE "eager_limit_ranked"."eager_limit_row" BETWEEN $3 AND $4 ORDER BY "eager_limit_ranked"."post_id", "eager_limit_ranked"."eager_limit_row"`,
			wantArg: []any{1, 2, 2, 3},
		},
		{
			name:    "sqlserver",
			family:  dialect.FamilySQLServer,
			want:    `SELECT * FROM (SELECT [eager_limit_table].*, ROW_NUMBER() OVER (PARTITION BY [eager_limit_table].[post_id] ORDER BY [eager_limit_table].[created_at] DESC, [eager_limit_table].[id]) AS [eager_limit_row] FROM (SELECT [comments].* FROM [comments] WHERE [comments].[post_id] IN (@p1, @p2)) AS [eager_limit_table]) AS [eager_limit_ranked] WHERE [eager_limit_ranked].[eager_limit_row] BETWEEN @p3 AND @p4 ORDER BY [eager_limit_ranked].[post_id], [eager_limit_ranked].[eager_limit_row]`,
			wantArg: []any{1, 2, 2, 3},
		},
		{
			name:    "mysql8",
			family:  dialect.FamilyMySQL,
			opts:    []GrammarOption{WithWindowFunctions(true)},
			want:    "SELECT * FROM (SELECT `eager_limit_table`.*, ROW_NUMBER() OVER (PARTITION BY `eager_limit_table`.`post_id` ORDER BY `eager_limit_table`.`created_at` DESC, `eager_limit_table`.`id`) AS `eager_limit_row` FROM (SELECT `comments`.* FROM `comments` WHERE `comments`.`post_id` IN (?, ?)) AS `eager_limit_table`) AS `eager_limit_ranked` WHERE `eager_limit_ranked`.`eager_limit_row` BETWEEN ? AND ? ORDER BY `eager_limit_ranked`.`post_id`, `eager_limit_ranked`.`eager_limit_row`",
			wantArg: []any{1, 2, 2, 3},
		},
		{
			name:    "mysql",
			family:  dialect.FamilyMySQL,
			want:    "SELECT `eager_limit_table`.* FROM (SELECT `comments`.* FROM `comments` WHERE `comments`.`post_id` IN (?, ?)) AS `eager_limit_table` WHERE (SELECT COUNT(*) FROM (SELECT `comments`.* FROM `comments` WHERE `comments`.`post_id` IN (?, ?)) AS `eager_limit_peer` WHERE `eager_limit_peer`.`post_id` = `eager_limit_table`.`post_id` AND (((`eager_limit_peer`.`created_at` > `eager_limit_table`.`created_at` OR (`eager_limit_table`.`created_at` IS NULL AND `eager_limit_peer`.`created_at` IS NOT NULL))) OR (`eager_limit_peer`.`created_at` <=> `eager_limit_table`.`created_at` AND (`eager_limit_peer`.`id` < `eager_limit_table`.`id` OR (`eager_limit_peer`.`id` IS NULL AND `eager_limit_table`.`id` IS NOT NULL))))) BETWEEN ? AND ? ORDER BY `eager_limit_table`.`post_id`, `eager_limit_table`.`created_at` DESC, `eager_limit_table`.`id`",
			wantArg: []any{1, 2, 1, 2, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGrammar(t, tt.family, tt.opts...)
			query, args, err := g.Rewrite(commentsBase(g), commentsLimit())
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, tt.wantArg, args)

			// Query on a selector carrying the limit compiles the same statement.
			s := commentsBase(g)
			require.NoError(t, s.SetEagerLimit(commentsLimit()))
			q2, a2 := s.Query()
			require.NoError(t, s.Err())
			assert.Equal(t, query, q2)
			assert.Equal(t, args, a2)
		})
	}
}

func TestGrammar_RewriteBounds(t *testing.T) {
	pg := mustGrammar(t, dialect.FamilyPostgres)
	my := mustGrammar(t, dialect.FamilyMySQL)
	base := func(g Grammar) *Selector { return g.Select().From(Table("comments")) }
	tests := []struct {
		name     string
		g        Grammar
		l        *EagerLimit
		fragment string
		args     []any
	}{
		{"limit only", pg, PartitionBy("post_id").SetLimit(3), `"eager_limit_row" BETWEEN $1 AND $2`, []any{1, 3}},
		{"limit zero", pg, PartitionBy("post_id").SetLimit(0), `"eager_limit_row" BETWEEN $1 AND $2`, []any{1, 0}},
		{"offset only", pg, PartitionBy("post_id").SetOffset(2), `"eager_limit_row" > $1`, []any{2}},
		{"correlated limit only", my, PartitionBy("post_id").SetLimit(3).TiebreakBy("id"), ") BETWEEN ? AND ?", []any{0, 2}},
		{"correlated limit zero", my, PartitionBy("post_id").SetLimit(0).TiebreakBy("id"), ") BETWEEN ? AND ?", []any{0, -1}},
		{"correlated offset only", my, PartitionBy("post_id").SetOffset(2).TiebreakBy("id"), ") >= ?", []any{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.g.Rewrite(base(tt.g), tt.l)
			require.NoError(t, err)
			assert.Contains(t, query, tt.fragment)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestGrammar_CorrelatedNulls(t *testing.T) {
	sqlite := mustGrammar(t, dialect.FamilySQLite, WithWindowFunctions(false))
	query, _, err := sqlite.Rewrite(sqlite.Select().From(Table("comments")), PartitionBy("post_id").SetLimit(1).OrderBy(Asc("votes")).TiebreakBy("id"))
	require.NoError(t, err)
	assert.Contains(t, query, `AND ((("eager_limit_peer"."votes" < "eager_limit_table"."votes" OR ("eager_limit_peer"."votes" IS NULL AND "eager_limit_table"."votes" IS NOT NULL))) OR ("eager_limit_peer"."votes" IS "eager_limit_table"."votes" AND ("eager_limit_peer"."id" < "eager_limit_table"."id" OR ("eager_limit_peer"."id" IS NULL AND "eager_limit_table"."id" IS NOT NULL)))))`)
}

func TestGrammar_RewriteComposite(t *testing.T) {
	g := mustGrammar(t, dialect.FamilyPostgres)
	l := PartitionBy("commentable_type", "commentable_id").SetLimit(1)
	query, _, err := g.Rewrite(g.Select().From(Table("comments")), l)
	require.NoError(t, err)
	assert.Contains(t, query, `PARTITION BY "eager_limit_table"."commentable_type", "eager_limit_table"."commentable_id" ORDER BY "eager_limit_table"."commentable_type", "eager_limit_table"."commentable_id"`)
	assert.Contains(t, query, `ORDER BY "eager_limit_ranked"."commentable_type", "eager_limit_ranked"."commentable_id", "eager_limit_ranked"."eager_limit_row"`)

	my := mustGrammar(t, dialect.FamilyMySQL)
	query, _, err = my.Rewrite(my.Select().From(Table("comments")), l.TiebreakBy("id"))
	require.NoError(t, err)
	assert.Contains(t, query, "`eager_limit_peer`.`commentable_type` = `eager_limit_table`.`commentable_type` AND `eager_limit_peer`.`commentable_id` = `eager_limit_table`.`commentable_id`")
}

func TestGrammar_RewritePreservesClauses(t *testing.T) {
	g := mustGrammar(t, dialect.FamilySQLite, WithTablePrefix("app_"))
	base := g.Select("comments.post_id", "COUNT(*)").
		From(Table("comments")).
		Join(Table("posts")).On("posts.id", "comments.post_id").
		Where(EQ("posts.published", true)).
		GroupBy("comments.post_id", "comments.author").
		Having(ExprP("COUNT(*) > ?", 1)).
		Union(g.Select("post_id", "total").From(Table("archived_comments")).Where(EQ("year", 2020)))
	query, args, err := g.Rewrite(base, PartitionBy("post_id").SetLimit(1))
	require.NoError(t, err)
	assert.Contains(t, query, `FROM (SELECT "app_comments"."post_id", COUNT(*) FROM "app_comments" JOIN "app_posts" ON "app_posts"."id" = "app_comments"."post_id" WHERE "app_posts"."published" = ? GROUP BY "app_comments"."post_id", "app_comments"."author" HAVING COUNT(*) > ? UNION SELECT "post_id", "total" FROM "app_archived_comments" WHERE "year" = ?) AS "eager_limit_table"`)
	assert.Equal(t, []any{true, 1, 2020, 1, 1}, args)
	assert.NotContains(t, query, `"app_eager_limit`)
}

func TestGrammar_RewriteErrors(t *testing.T) {
	my := mustGrammar(t, dialect.FamilyMySQL)
	_, _, err := my.Rewrite(my.Select().From(Table("comments")), PartitionBy("post_id").SetLimit(1))
	require.ErrorIs(t, err, errCorrelatedOrder)

	// An order without a unique column leaves ties unranked.
	_, _, err = my.Rewrite(my.Select().From(Table("comments")), PartitionBy("post_id").SetLimit(1).OrderBy(Desc("votes")))
	require.ErrorIs(t, err, errCorrelatedOrder)
	_, _, err = my.Rewrite(my.Select().From(Table("comments")).OrderBy(Asc("votes")), PartitionBy("post_id").SetLimit(1))
	require.ErrorIs(t, err, errCorrelatedOrder)
	_, _, err = my.Rewrite(my.Select().From(Table("comments")), PartitionBy("post_id").SetLimit(1).OrderBy(Desc("votes")).TiebreakBy("comments.post_id"))
	require.ErrorIs(t, err, errCorrelatedOrder)

	// Row numbering ranks ties by position and needs no tiebreak.
	pg := mustGrammar(t, dialect.FamilyPostgres)
	_, _, err = pg.Rewrite(pg.Select().From(Table("comments")), PartitionBy("post_id").SetLimit(1).OrderBy(Desc("votes")))
	require.NoError(t, err)

	_, _, err = my.Rewrite(my.Select().From(Table("comments")), PartitionBy().SetLimit(1))
	require.ErrorIs(t, err, ErrInvalidEagerLimit)

	_, _, err = my.Rewrite(nil, PartitionBy("post_id").SetLimit(1))
	require.Error(t, err)

	s := my.Select().From(Table("comments")).On("a", "b")
	_, _, err = my.Rewrite(s, PartitionBy("post_id").SetLimit(1).TiebreakBy("id"))
	require.Error(t, err)
}

var placeholderRe = map[dialect.Family]*regexp.Regexp{
	dialect.FamilyMySQL:     regexp.MustCompile(`\?`),
	dialect.FamilySQLite:    regexp.MustCompile(`\?`),
	dialect.FamilyPostgres:  regexp.MustCompile(`\$(\d+)`),
	dialect.FamilySQLServer: regexp.MustCompile(`@p(\d+)`),
}

// assertPlaceholders checks that the statement references every argument
// once, in order.
func assertPlaceholders(t *testing.T, f dialect.Family, query string, args []any) {
	t.Helper()
	matches := placeholderRe[f].FindAllStringSubmatch(query, -1)
	require.Len(t, matches, len(args), query)
	for i, m := range matches {
		if len(m) > 1 {
			assert.Equal(t, strconv.Itoa(i+1), m[1], query)
		}
	}
}

func driverValues(args []any) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a
	}
	return values
}

func TestGrammar_MockRoundTrip(t *testing.T) {
	grammars := []struct {
		name string
		g    Grammar
	}{
		{"mysql", mustGrammar(t, dialect.FamilyMySQL)},
		{"mysql8", mustGrammar(t, dialect.FamilyMySQL, WithWindowFunctions(true))},
		{"postgres", mustGrammar(t, dialect.FamilyPostgres)},
		{"sqlite", mustGrammar(t, dialect.FamilySQLite)},
		{"sqlite-legacy", mustGrammar(t, dialect.FamilySQLite, WithWindowFunctions(false))},
		{"sqlserver", mustGrammar(t, dialect.FamilySQLServer)},
	}
	for _, tt := range grammars {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()
			drv, err := OpenDB(tt.g.Dialect(), db)
			require.NoError(t, err)

			s := tt.g.Select("comments.*").
				From(Table("comments")).
				Where(And(In("comments.post_id", 7, 8, 9), EQ("comments.approved", true), Like("comments.body", "%go%")))
			require.NoError(t, s.SetEagerLimit(PartitionBy("post_id").SetLimit(3).SetOffset(2).OrderBy(Desc("votes")).TiebreakBy("id")))
			query, args := s.Query()
			require.NoError(t, s.Err())
			assertPlaceholders(t, tt.g.Family(), query, args)

			mock.ExpectQuery(query).
				WithArgs(driverValues(args)...).
				WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).AddRow(1, 7))
			rows := &Rows{}
			require.NoError(t, drv.Query(context.Background(), query, args, rows))
			require.NoError(t, rows.Close())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// seedComments creates comments for four posts:
//
//	post 1: ids 1..5 with votes 1, 5, 3, 3, 0 (order by votes desc, id: 2, 3, 4, 1, 5)
//	post 2: ids 6, 7 with votes 2, 9 (order: 7, 6)
//	post 3: ids 8..11 with votes NULL, NULL, 7, 7 (order: 10, 11, 8, 9)
//	post 4: none
func seedComments(t *testing.T) *stdsql.DB {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER NOT NULL, votes INTEGER)`)
	require.NoError(t, err)
	for _, c := range [][3]any{{1, 1, 1}, {2, 1, 5}, {3, 1, 3}, {4, 1, 3}, {5, 1, 0}, {6, 2, 2}, {7, 2, 9}, {8, 3, nil}, {9, 3, nil}, {10, 3, 7}, {11, 3, 7}} {
		_, err := db.Exec(`INSERT INTO comments (id, post_id, votes) VALUES (?, ?, ?)`, c[0], c[1], c[2])
		require.NoError(t, err)
	}
	return db
}

// groupIDs runs the statement and returns the comment ids per post, in
// result order.
func groupIDs(t *testing.T, db *stdsql.DB, query string, args []any) map[int64][]int64 {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err, query)
	defer rows.Close()
	columns, err := rows.Columns()
	require.NoError(t, err)
	groups := make(map[int64][]int64)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		require.NoError(t, rows.Scan(dest...))
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		post, id := row["post_id"].(int64), row["id"].(int64)
		groups[post] = append(groups[post], id)
	}
	require.NoError(t, rows.Err())
	return groups
}

func TestGrammar_SQLite(t *testing.T) {
	db := seedComments(t)
	desc, asc := []OrderTerm{Desc("votes")}, []OrderTerm{Asc("votes")}
	tests := []struct {
		name  string
		l     *EagerLimit
		order []OrderTerm
		want  map[int64][]int64
	}{
		{"limit", PartitionBy("post_id").SetLimit(3), desc, map[int64][]int64{1: {2, 3, 4}, 2: {7, 6}, 3: {10, 11, 8}}},
		{"limit one with ties", PartitionBy("post_id").SetLimit(1), desc, map[int64][]int64{1: {2}, 2: {7}, 3: {10}}},
		{"limit and offset", PartitionBy("post_id").SetLimit(2).SetOffset(1), desc, map[int64][]int64{1: {3, 4}, 2: {6}, 3: {11, 8}}},
		{"limit zero", PartitionBy("post_id").SetLimit(0), desc, map[int64][]int64{}},
		{"offset only", PartitionBy("post_id").SetOffset(3), desc, map[int64][]int64{1: {1, 5}, 3: {9}}},
		{"offset past group", PartitionBy("post_id").SetLimit(5).SetOffset(10), desc, map[int64][]int64{}},
		{"ascending nulls first", PartitionBy("post_id").SetLimit(2), asc, map[int64][]int64{1: {5, 1}, 2: {6, 7}, 3: {8, 9}}},
		{"ascending offset into ties", PartitionBy("post_id").SetLimit(1).SetOffset(2), asc, map[int64][]int64{1: {3}, 3: {10}}},
		{"tiebreak only", PartitionBy("post_id").SetLimit(1), nil, map[int64][]int64{1: {1}, 2: {6}, 3: {8}}},
	}
	for _, tt := range tests {
		results := make(map[bool]map[int64][]int64, 2)
		for _, legacy := range []bool{false, true} {
			g := mustGrammar(t, dialect.FamilySQLite, WithWindowFunctions(!legacy))
			t.Run(fmt.Sprintf("%s/legacy=%t", tt.name, legacy), func(t *testing.T) {
				s := g.Select("comments.*").From(Table("comments")).Where(In("comments.post_id", 1, 2, 3, 4))
				l := tt.l.clone().OrderBy(tt.order...).TiebreakBy("id")
				require.NoError(t, s.SetEagerLimit(l))
				query, args := s.Query()
				require.NoError(t, s.Err())
				results[legacy] = groupIDs(t, db, query, args)
				assert.Equal(t, tt.want, results[legacy])
				if tt.l.Limit != nil {
					for post, ids := range results[legacy] {
						assert.LessOrEqual(t, len(ids), *tt.l.Limit, "post %d", post)
					}
				}
			})
		}
		assert.Equal(t, results[false], results[true], tt.name)
	}
}

func TestGrammar_SQLiteComposite(t *testing.T) {
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE images (id INTEGER PRIMARY KEY, imageable_type TEXT, imageable_id INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO images (id, imageable_type, imageable_id) VALUES (1, 'post', 1), (2, 'post', 1), (3, 'video', 1), (4, 'video', 1), (5, 'post', 2)`)
	require.NoError(t, err)

	for _, legacy := range []bool{false, true} {
		g := mustGrammar(t, dialect.FamilySQLite, WithWindowFunctions(!legacy))
		s := g.Select("id", "imageable_type", "imageable_id").From(Table("images"))
		require.NoError(t, s.SetEagerLimit(PartitionBy("imageable_type", "imageable_id").SetLimit(1).OrderBy(Desc("id")).TiebreakBy("id")))
		query, args := s.Query()
		rows, err := db.Query(query, args...)
		require.NoError(t, err, query)
		var got []string
		for rows.Next() {
			var (
				id    int64
				typ   string
				owner int64
				rank  int64
			)
			if legacy {
				require.NoError(t, rows.Scan(&id, &typ, &owner))
			} else {
				require.NoError(t, rows.Scan(&id, &typ, &owner, &rank))
			}
			got = append(got, fmt.Sprintf("%s/%d:%d", typ, owner, id))
		}
		require.NoError(t, rows.Err())
		require.NoError(t, rows.Close())
		assert.Equal(t, []string{"post/1:2", "post/2:5", "video/1:4"}, got, "legacy=%t", legacy)
	}
}
