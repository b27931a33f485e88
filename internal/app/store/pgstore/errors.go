package pgstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUndefinedTable    = "42P01"
	codeUndefinedFunction = "42883"
	codeRaiseException    = "P0001"
)

// isUndefinedObject reports whether err is Postgres rejecting an unknown
// table, view or function, which usually means migrations have not run.
func isUndefinedObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUndefinedTable || pgErr.Code == codeUndefinedFunction
	}
	return false
}

// describe wraps err with the failed action. Server errors keep their
// SQLSTATE in the text so logs show what Postgres rejected; a missing table
// or function also gets a migrations hint.
func describe(action string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeRaiseException {
			return fmt.Errorf("pgstore: %s: %s: %w", action, pgErr.Message, err)
		}
		if isUndefinedObject(err) {
			return fmt.Errorf("pgstore: %s: SQLSTATE %s (schema missing, are migrations applied?): %w", action, pgErr.Code, err)
		}
		return fmt.Errorf("pgstore: %s: SQLSTATE %s: %w", action, pgErr.Code, err)
	}
	return fmt.Errorf("pgstore: %s: %w", action, err)
}
