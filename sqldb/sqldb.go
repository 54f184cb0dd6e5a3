// Package sqldb implements the core and auth store interfaces on a SQL
// database using prepared statements. The schema works on both SQLite and
// MySQL.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Sprintf("error preparing %s: %v", query, err))
	}
	return stmt
}

// storageErr wraps driver errors into the engine's taxonomy. Uniqueness
// violations become core.ErrConflict so the service can retry sequence
// assignment.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	return &core.StorageError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var msg = err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite3
		strings.Contains(msg, "Duplicate entry") // mysql
}
