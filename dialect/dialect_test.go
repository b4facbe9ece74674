package dialect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		driver string
		want   Family
	}{
		{"mysql", FamilyMySQL},
		{"mariadb", FamilyMySQL},
		{"postgres", FamilyPostgres},
		{"pgsql", FamilyPostgres},
		{"pgx", FamilyPostgres},
		{"PostgreSQL", FamilyPostgres},
		{"sqlite", FamilySQLite},
		{"sqlite3", FamilySQLite},
		{"sqlsrv", FamilySQLServer},
		{"sqlserver", FamilySQLServer},
		{"mssql", FamilySQLServer},
		{"postgres-otel", FamilyPostgres},
		{"sqlite3-instrumented", FamilySQLite},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			f, err := ParseFamily(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestParseFamily_Unsupported(t *testing.T) {
	for _, name := range []string{"oracle", "", "cockroach", "db2"} {
		t.Run(name, func(t *testing.T) {
			f, err := ParseFamily(name)
			require.Error(t, err)
			assert.Equal(t, FamilyUnknown, f)
			assert.True(t, errors.Is(err, ErrUnsupportedDialect))
			assert.True(t, IsUnsupportedDialect(fmt.Errorf("wrap: %w", err)))

			var ue *UnsupportedDialectError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, name, ue.Driver)
		})
	}
	assert.False(t, IsUnsupportedDialect(nil))
	assert.False(t, IsUnsupportedDialect(errors.New("other")))
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, MySQL, FamilyMySQL.String())
	assert.Equal(t, Postgres, FamilyPostgres.String())
	assert.Equal(t, SQLite, FamilySQLite.String())
	assert.Equal(t, SQLServer, FamilySQLServer.String())
	assert.Equal(t, "unknown", FamilyUnknown.String())
	assert.Len(t, Families(), 4)
}
