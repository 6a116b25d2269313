package relational

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/99minutos/user-management/internal/core/domain"
)

// isUniqueViolation covers drivers that translate errors (postgres) and the
// raw SQLite message.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) ||
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// storeError passes domain errors through and classifies the rest.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.Classified(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrUserNotFound
	}
	return domain.Unavailable(op, err)
}
