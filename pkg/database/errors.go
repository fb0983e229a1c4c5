package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/medflow/medflow-dispensary/pkg/errors"
)

// auditChecks maps the audit table's CHECK constraints to the field they
// guard and the message shown for it.
var auditChecks = []struct {
	suffix, field, message string
}{
	{"action_valid", "action", "must be one of: override, reset"},
	{"field_valid", "field", "must be one of: min_stock, max_stock, mean_daily_consumption, minimum_possible_quantity"},
}

// MapPQError turns a PostgreSQL constraint violation anywhere in err's chain
// into an AppError. Anything else yields nil and should be treated as an
// internal failure by the caller.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code.Name() {
	case "check_violation":
		for _, c := range auditChecks {
			if strings.HasSuffix(pqErr.Constraint, c.suffix) {
				return errors.Validation(map[string]string{c.field: c.message})
			}
		}
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)

	case "unique_violation":
		return errors.Conflict("this change was already recorded")

	case "not_null_violation":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})
	}
	return nil
}
