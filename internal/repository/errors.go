// Package repository defines the MySQL-backed stores and the sentinel
// errors they share. Handlers and services distinguish failure cases with
// errors.Is against these values.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a unique key, such as a
// second user with the same cedula.
var ErrConflict = errors.New("conflict")

// ErrStale is returned by conditional updates when the row changed since
// it was read. Callers treat it as losing a race.
var ErrStale = errors.New("stale record")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
