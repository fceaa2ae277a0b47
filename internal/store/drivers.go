package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/i474232898/sensor-telemetry/internal/common"
)

const (
	mysqlErrNoReferencedRow = 1452
	pgForeignKeyViolation   = "23503"
)

// isForeignKeyViolation reports whether err was raised because an entry
// referenced a sensor that does not exist.
func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrNoReferencedRow
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Older connections may only report the primary SQLITE_CONSTRAINT code.
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			common.HasAnyFold(liteErr.Error(), "foreign key")
	}
	return common.HasAnyFold(err.Error(), "foreign key constraint")
}
