// Package dialect defines the database engine families supported by
// eagerlimit and the driver interfaces the loaders execute against.
//
// # Families
//
// Every driver name resolves to exactly one Family, once, when a client
// or grammar is constructed:
//
//   - FamilyMySQL: mysql, mariadb
//   - FamilyPostgres: postgres, postgresql, pgsql, pgx
//   - FamilySQLite: sqlite, sqlite3
//   - FamilySQLServer: sqlserver, sqlsrv, mssql
//
// Names wrapped by telemetry drivers ("postgres-otel") resolve by prefix.
// Any other name yields an *UnsupportedDialectError:
//
//	f, err := dialect.ParseFamily("oracle")
//	errors.Is(err, dialect.ErrUnsupportedDialect) // true
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: SQL builder, per-dialect eager limit grammars and driver
//   - dialect/sql/sqlgraph: relation adapters and neighbor loading
package dialect
