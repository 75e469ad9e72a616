package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
)

// Postgres error codes the ledger reacts to.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgRaiseException       = "P0001"
)

const reversalIndex = "ux_ledger_entries_reverses"

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "failed to commit transaction")
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// mapPgError translates driver errors into the ledger's sentinel errors.
func mapPgError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(msg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %s: %s", apperrors.ErrBusy, msg, pgErr.Message)
		case pgUniqueViolation:
			if pgErr.ConstraintName == reversalIndex {
				return fmt.Errorf("%w: %s: entry already reversed", apperrors.ErrAlreadyProcessed, msg)
			}
			return fmt.Errorf("%w: %s: %s", apperrors.ErrDuplicate, msg, pgErr.ConstraintName)
		case pgCheckViolation:
			if strings.HasPrefix(pgErr.ConstraintName, "accounts_") {
				return fmt.Errorf("%w: %s: %s", apperrors.ErrInsufficientFunds, msg, pgErr.ConstraintName)
			}
			return apperrors.NewValidationError(fmt.Sprintf("%s: %s", msg, pgErr.ConstraintName))
		case pgRaiseException:
			return fmt.Errorf("%w: %s: %s", apperrors.ErrAlreadyProcessed, msg, pgErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewAppError(500, msg, err)
}
