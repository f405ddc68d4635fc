package repository

import "strings"

// handleError converts database-specific errors to repository errors.
func handleError(err error) error {
	errStr := err.Error()

	// PostgreSQL / SQLite / MySQL unique constraint violations
	if strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
	}

	return err
}
