package pgsql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, apperrors.ErrNotFound},
		{"lock timeout", &pgconn.PgError{Code: pgLockNotAvailable}, apperrors.ErrBusy},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, apperrors.ErrBusy},
		{"serialization", fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgSerializationFailure}), apperrors.ErrBusy},
		{"duplicate reference", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "settlement_refs_pkey"}, apperrors.ErrDuplicate},
		{"second reversal", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: reversalIndex}, apperrors.ErrAlreadyProcessed},
		{"negative balance", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "accounts_available_check"}, apperrors.ErrInsufficientFunds},
		{"other check", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "ledger_entries_amount_check"}, apperrors.ErrValidation},
		{"append only trigger", &pgconn.PgError{Code: pgRaiseException, Message: "ledger entries are append-only"}, apperrors.ErrAlreadyProcessed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tt.err, "op"), tt.want)
		})
	}
}

func TestMapPgError_Passthrough(t *testing.T) {
	assert.NoError(t, mapPgError(nil, "op"))
	assert.ErrorIs(t, mapPgError(context.DeadlineExceeded, "op"), context.DeadlineExceeded)

	err := mapPgError(errors.New("connection reset"), "op")
	var appErr *apperrors.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, 500, appErr.Code)
	}
	assert.False(t, errors.Is(err, apperrors.ErrBusy))
}

func TestLockTimeoutSetting(t *testing.T) {
	assert.Equal(t, "1500ms", lockTimeoutSetting(1500_000_000))
	assert.Equal(t, "0", lockTimeoutSetting(0))
}
