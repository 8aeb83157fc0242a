package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"rdw-inventory-api/internal/apperr"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

const (
	constraintSlotOccupant  = "equipment_current_slot_key"
	constraintHistoryToSlot = "placement_history_to_slot_id_fkey"
	constraintEquipmentSlot = "equipment_current_slot_id_fkey"
)

// classify turns a driver error into an *apperr.Error. Anything not
// recognised becomes a non-retryable storage error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperr.Storage(err, pgconn.SafeToRetry(err))
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		if pgErr.ConstraintName == constraintSlotOccupant {
			return apperr.Conflict(apperr.CodeSlotOccupied, "target slot is occupied; choose a different slot")
		}
	case codeForeignKeyViolation:
		if pgErr.ConstraintName == constraintHistoryToSlot || pgErr.ConstraintName == constraintEquipmentSlot {
			return apperr.NotFound(apperr.CodeSlotNotFound, "slot not found")
		}
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return apperr.Storage(err, true)
	}
	return apperr.Storage(err, false)
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign-key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// IsCheckViolation reports whether err is a CHECK constraint failure.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeCheckViolation
}
