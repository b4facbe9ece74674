package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite3"
	SQLServer = "sqlserver"
)

// Family identifies one of the supported database engine families.
// The set is closed: every driver name resolves to exactly one Family
// or to an UnsupportedDialectError.
type Family uint8

// Supported engine families.
const (
	FamilyUnknown Family = iota
	FamilyMySQL
	FamilyPostgres
	FamilySQLite
	FamilySQLServer
)

// String returns the canonical dialect name of the family.
func (f Family) String() string {
	switch f {
	case FamilyMySQL:
		return MySQL
	case FamilyPostgres:
		return Postgres
	case FamilySQLite:
		return SQLite
	case FamilySQLServer:
		return SQLServer
	default:
		return "unknown"
	}
}

// Families returns all supported families.
func Families() []Family {
	return []Family{FamilyMySQL, FamilyPostgres, FamilySQLite, FamilySQLServer}
}

// aliases maps every accepted driver name to its family.
var aliases = map[string]Family{
	"mysql":      FamilyMySQL,
	"mariadb":    FamilyMySQL,
	"postgres":   FamilyPostgres,
	"postgresql": FamilyPostgres,
	"pgsql":      FamilyPostgres,
	"pgx":        FamilyPostgres,
	"sqlite":     FamilySQLite,
	"sqlite3":    FamilySQLite,
	"sqlserver":  FamilySQLServer,
	"sqlsrv":     FamilySQLServer,
	"mssql":      FamilySQLServer,
}

// prefixes are checked in order for driver names wrapped by telemetry
// drivers, e.g. "postgres-otel" or "sqlite3-instrumented".
var prefixes = []string{"postgresql", "postgres", "pgsql", "pgx", "mysql", "mariadb", "sqlite3", "sqlite", "sqlserver", "sqlsrv", "mssql"}

// ErrUnsupportedDialect is matched by every UnsupportedDialectError.
var ErrUnsupportedDialect = errors.New("dialect: unsupported dialect")

// UnsupportedDialectError is returned when a driver name has no matching
// engine family. It is fatal: no rewrite rule exists for the driver.
type UnsupportedDialectError struct {
	Driver string
}

// Error implements the error interface.
func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("dialect: unsupported dialect %q", e.Driver)
}

// Is reports whether the target is ErrUnsupportedDialect.
func (e *UnsupportedDialectError) Is(err error) bool {
	return err == ErrUnsupportedDialect
}

// IsUnsupportedDialect returns true if the error is an UnsupportedDialectError.
func IsUnsupportedDialect(err error) bool {
	return err != nil && errors.Is(err, ErrUnsupportedDialect)
}

// ParseFamily resolves a driver name to its engine family.
func ParseFamily(driverName string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(driverName))
	if f, ok := aliases[name]; ok {
		return f, nil
	}
	for _, p := range prefixes {
		if name != p && strings.HasPrefix(name, p) {
			return aliases[p], nil
		}
	}
	return FamilyUnknown, &UnsupportedDialectError{Driver: driverName}
}

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the loaders.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
