package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
)

// sqlStateError is implemented by errors carrying a SQLSTATE code, such as
// pgconn.PgError of pgx.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes (class 42, syntax error or access rule violation).
const (
	pgSyntaxError     = "42601"
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

// MySQL error numbers.
const (
	mysqlParseError   = 1064
	mysqlBadField     = 1054
	mysqlNoSuchTable  = 1146
	mysqlWindowSyntax = 1235 // "This version of MySQL doesn't yet support ..."
)

// SQL Server error numbers.
const (
	mssqlSyntaxError   = 102
	mssqlInvalidColumn = 207
	mssqlInvalidObject = 208
	mssqlKeywordSyntax = 156
)

// classifier reports whether an error matches a class per engine.
type classifier struct {
	sqlState []string
	mysql    []uint16
	mssql    []int32
	text     []string
}

func (c classifier) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && containsString(c.sqlState, e.SQLState()) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && containsString(c.sqlState, string(pqErr.Code)) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		for _, n := range c.mysql {
			if myErr.Number == n {
				return true
			}
		}
	}
	if n, ok := mssqlNumber(err); ok {
		for _, m := range c.mssql {
			if n == m {
				return true
			}
		}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && containsAny(liteErr.Error(), c.text...) {
		return true
	}
	// Fallback for drivers wrapping errors without the types above.
	return containsAny(err.Error(), c.text...)
}

func mssqlNumber(err error) (int32, bool) {
	var e mssql.Error
	if errors.As(err, &e) {
		return e.Number, true
	}
	var pe *mssql.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Number, true
	}
	return 0, false
}

var (
	syntaxErrors = classifier{
		sqlState: []string{pgSyntaxError},
		mysql:    []uint16{mysqlParseError, mysqlWindowSyntax},
		mssql:    []int32{mssqlSyntaxError, mssqlKeywordSyntax},
		text:     []string{"syntax error", "Error 1064", "Incorrect syntax near"},
	}
	undefinedErrors = classifier{
		sqlState: []string{pgUndefinedColumn, pgUndefinedTable},
		mysql:    []uint16{mysqlBadField, mysqlNoSuchTable},
		mssql:    []int32{mssqlInvalidColumn, mssqlInvalidObject},
		text:     []string{"no such column", "no such table", "Invalid column name", "Invalid object name"},
	}
)

// IsSyntaxError reports if the database rejected a statement as
// malformed. For eager limit queries this points at a rewrite the engine
// does not support, such as window functions on MySQL 5.7.
func IsSyntaxError(err error) bool {
	return syntaxErrors.match(err)
}

// IsUndefinedError reports if a statement referenced a missing table or
// column, typically a wrong key name in an EdgeSpec.
func IsUndefinedError(err error) bool {
	return undefinedErrors.match(err)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
