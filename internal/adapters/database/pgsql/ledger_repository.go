package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/exchange_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/exchange_ledger/internal/models"
	"github.com/SscSPs/exchange_ledger/internal/utils/mapping"
	"github.com/SscSPs/exchange_ledger/internal/utils/pagination"
)

const entryColumns = `entry_id, entry_type, status, debit_owner_id, debit_asset_code, credit_owner_id, credit_asset_code,
	source_asset, source_amount::text, destination_asset, destination_amount::text, rate::text,
	gateway_name, external_reference, destination_address, reverses_entry_id, resolution_reason,
	payload, resolution_payload, created_at, finalized_at`

const accountColumns = `owner_id, asset_code, available::text, reserved::text, created_at, updated_at`

// PgxLedgerRepository stores the ledger in Postgres. Row locks taken with
// SELECT ... FOR UPDATE serialize writers; lock_timeout bounds the wait.
type PgxLedgerRepository struct {
	BaseRepository
	lockWait time.Duration
}

func newPgxLedgerRepository(pool *pgxpool.Pool, lockWait time.Duration) *PgxLedgerRepository {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
		lockWait:       lockWait,
	}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var m models.LedgerEntry
	if err := row.Scan(
		&m.EntryID, &m.EntryType, &m.Status,
		&m.DebitOwnerID, &m.DebitAssetCode, &m.CreditOwnerID, &m.CreditAssetCode,
		&m.SourceAsset, &m.SourceAmount, &m.DestinationAsset, &m.DestinationAmount, &m.Rate,
		&m.GatewayName, &m.ExternalReference, &m.DestinationAddress, &m.ReversesEntryID, &m.ResolutionReason,
		&m.Payload, &m.ResolutionPayload, &m.CreatedAt, &m.FinalizedAt,
	); err != nil {
		return nil, err
	}
	return mapping.ToDomainLedgerEntry(m)
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var m models.Account
	if err := row.Scan(&m.OwnerID, &m.AssetCode, &m.Available, &m.Reserved, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	acc, err := mapping.ToDomainAccount(m)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// RunInTx runs fn inside one database transaction.
func (r *PgxLedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, uow portsrepo.LedgerUnitOfWork) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // no-op once committed

	if r.lockWait > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, lockTimeoutSetting(r.lockWait)); err != nil {
			return mapPgError(err, "failed to set lock timeout")
		}
	}

	uow := &pgxUnitOfWork{tx: tx, locked: make(map[domain.AccountKey]*domain.Account)}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// lockTimeoutSetting formats a wait for Postgres' lock_timeout. Zero disables the timeout.
func lockTimeoutSetting(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// FindEntryByID retrieves a single entry.
func (r *PgxLedgerRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE entry_id = $1;`
	e, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("entry %s not found", entryID))
	}
	return e, nil
}

// ListEntriesByOwner returns entries touching the owner, newest first.
func (r *PgxLedgerRepository) ListEntriesByOwner(ctx context.Context, ownerID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	var cursorAt *time.Time
	var cursorID *string
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		cursorAt, cursorID = &c.CreatedAt, &c.ID
	}

	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE (debit_owner_id = $1 OR credit_owner_id = $1)
		  AND ($2::timestamptz IS NULL OR (created_at, entry_id) < ($2::timestamptz, $3::text))
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $4;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, cursorAt, cursorID, limit+1)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to list entries")
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to scan entries")
	}

	var next *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		next = &token
	}
	return entries, next, nil
}

// ListEntriesByAccount returns every entry touching the account, oldest first.
func (r *PgxLedgerRepository) ListEntriesByAccount(ctx context.Context, key domain.AccountKey) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE (debit_owner_id = $1 AND debit_asset_code = $2)
		   OR (credit_owner_id = $1 AND credit_asset_code = $2)
		ORDER BY created_at, entry_id;
	`
	rows, err := r.Pool.Query(ctx, query, key.OwnerID, key.AssetCode)
	if err != nil {
		return nil, mapPgError(err, "failed to list account entries")
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, mapPgError(err, "failed to scan account entries")
	}
	return entries, nil
}

// FindAccountsByOwner returns the owner's accounts ordered by asset.
func (r *PgxLedgerRepository) FindAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY asset_code;`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, mapPgError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan account")
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to iterate accounts")
	}
	return accounts, nil
}

// FindAccount returns one account.
func (r *PgxLedgerRepository) FindAccount(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 AND asset_code = $2;`
	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, key.OwnerID, key.AssetCode))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("account %s not found", key))
	}
	return acc, nil
}

// FindSettlementRefByEntryID returns the reference bound to an entry.
func (r *PgxLedgerRepository) FindSettlementRefByEntryID(ctx context.Context, entryID string) (*domain.ExternalSettlementRef, error) {
	query := `SELECT gateway_name, external_reference, entry_id, created_at FROM settlement_refs WHERE entry_id = $1;`
	var m models.SettlementRef
	if err := r.Pool.QueryRow(ctx, query, entryID).Scan(&m.GatewayName, &m.ExternalReference, &m.EntryID, &m.CreatedAt); err != nil {
		return nil, mapPgError(err, fmt.Sprintf("no settlement reference for entry %s", entryID))
	}
	ref := mapping.ToDomainSettlementRef(m)
	return &ref, nil
}

// ListPendingSettlements returns pending settlements created before olderThan, oldest first.
func (r *PgxLedgerRepository) ListPendingSettlements(ctx context.Context, olderThan time.Time, limit int) ([]domain.PendingSettlement, error) {
	query := `
		SELECT s.gateway_name, s.external_reference, s.entry_id, s.created_at, ` + prefixed("e", entryColumns) + `
		FROM settlement_refs s
		JOIN ledger_entries e ON e.entry_id = s.entry_id
		WHERE e.status = 'pending' AND e.created_at < $1
		ORDER BY e.created_at, e.entry_id
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, mapPgError(err, "failed to list pending settlements")
	}
	defer rows.Close()

	var out []domain.PendingSettlement
	for rows.Next() {
		var ref models.SettlementRef
		var m models.LedgerEntry
		if err := rows.Scan(
			&ref.GatewayName, &ref.ExternalReference, &ref.EntryID, &ref.CreatedAt,
			&m.EntryID, &m.EntryType, &m.Status,
			&m.DebitOwnerID, &m.DebitAssetCode, &m.CreditOwnerID, &m.CreditAssetCode,
			&m.SourceAsset, &m.SourceAmount, &m.DestinationAsset, &m.DestinationAmount, &m.Rate,
			&m.GatewayName, &m.ExternalReference, &m.DestinationAddress, &m.ReversesEntryID, &m.ResolutionReason,
			&m.Payload, &m.ResolutionPayload, &m.CreatedAt, &m.FinalizedAt,
		); err != nil {
			return nil, mapPgError(err, "failed to scan pending settlement")
		}
		entry, err := mapping.ToDomainLedgerEntry(m)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PendingSettlement{Ref: mapping.ToDomainSettlementRef(ref), Entry: entry})
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to iterate pending settlements")
	}
	return out, nil
}

// pgxUnitOfWork is one open transaction. Account rows it has locked are cached so
// locking them again is a no-op.
type pgxUnitOfWork struct {
	tx     pgx.Tx
	locked map[domain.AccountKey]*domain.Account
}

var _ portsrepo.LedgerUnitOfWork = (*pgxUnitOfWork)(nil)

func (u *pgxUnitOfWork) LockAccounts(ctx context.Context, keys []domain.AccountKey) (map[domain.AccountKey]*domain.Account, error) {
	out := make(map[domain.AccountKey]*domain.Account, len(keys))
	for _, key := range domain.SortedUniqueKeys(keys...) {
		if acc, ok := u.locked[key]; ok {
			out[key] = acc
			continue
		}
		// Create-if-missing first so the FOR UPDATE below always finds a row to lock.
		if _, err := u.tx.Exec(ctx, `
			INSERT INTO accounts (owner_id, asset_code, available, reserved, created_at, updated_at)
			VALUES ($1, $2, 0, 0, NOW(), NOW())
			ON CONFLICT (owner_id, asset_code) DO NOTHING;
		`, key.OwnerID, key.AssetCode); err != nil {
			return nil, mapPgError(err, fmt.Sprintf("failed to create account %s", key))
		}
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 AND asset_code = $2 FOR UPDATE;`
		acc, err := scanAccount(u.tx.QueryRow(ctx, query, key.OwnerID, key.AssetCode))
		if err != nil {
			return nil, mapPgError(err, fmt.Sprintf("failed to lock account %s", key))
		}
		u.locked[key] = acc
		out[key] = acc
	}
	return out, nil
}

func (u *pgxUnitOfWork) SaveAccount(ctx context.Context, account *domain.Account) error {
	if _, ok := u.locked[account.Key]; !ok {
		return fmt.Errorf("account %s saved without being locked", account.Key)
	}
	m := mapping.ToModelAccount(*account)
	tag, err := u.tx.Exec(ctx, `
		UPDATE accounts
		SET available = $3::numeric, reserved = $4::numeric, updated_at = $5
		WHERE owner_id = $1 AND asset_code = $2;
	`, m.OwnerID, m.AssetCode, m.Available, m.Reserved, m.UpdatedAt)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save account %s", account.Key))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", account.Key))
	}
	u.locked[account.Key] = account
	return nil
}

func (u *pgxUnitOfWork) InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	m := mapping.ToModelLedgerEntry(entry)
	_, err := u.tx.Exec(ctx, `
		INSERT INTO ledger_entries (
			entry_id, entry_type, status, debit_owner_id, debit_asset_code, credit_owner_id, credit_asset_code,
			source_asset, source_amount, destination_asset, destination_amount, rate,
			gateway_name, external_reference, destination_address, reverses_entry_id, resolution_reason,
			payload, resolution_payload, created_at, finalized_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11::numeric, $12::numeric,
			$13, $14, $15, $16, $17, $18::jsonb, $19::jsonb, $20, $21);
	`,
		m.EntryID, m.EntryType, m.Status, m.DebitOwnerID, m.DebitAssetCode, m.CreditOwnerID, m.CreditAssetCode,
		m.SourceAsset, m.SourceAmount, m.DestinationAsset, m.DestinationAmount, m.Rate,
		m.GatewayName, m.ExternalReference, m.DestinationAddress, m.ReversesEntryID, m.ResolutionReason,
		jsonArg(m.Payload), jsonArg(m.ResolutionPayload), m.CreatedAt, m.FinalizedAt,
	)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to insert entry %s", entry.EntryID))
	}
	return nil
}

func (u *pgxUnitOfWork) FinalizeEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	m := mapping.ToModelLedgerEntry(entry)
	tag, err := u.tx.Exec(ctx, `
		UPDATE ledger_entries
		SET status = $2, resolution_reason = $3, resolution_payload = $4::jsonb, finalized_at = $5
		WHERE entry_id = $1 AND status = 'pending';
	`, m.EntryID, m.Status, m.ResolutionReason, jsonArg(m.ResolutionPayload), m.FinalizedAt)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to finalize entry %s", entry.EntryID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: entry %s is no longer pending", apperrors.ErrAlreadyProcessed, entry.EntryID)
	}
	return nil
}

func (u *pgxUnitOfWork) FindEntryForUpdate(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE entry_id = $1 FOR UPDATE;`
	e, err := scanEntry(u.tx.QueryRow(ctx, query, entryID))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("entry %s not found", entryID))
	}
	return e, nil
}

func (u *pgxUnitOfWork) InsertSettlementRef(ctx context.Context, ref domain.ExternalSettlementRef) error {
	m := mapping.ToModelSettlementRef(ref)
	_, err := u.tx.Exec(ctx, `
		INSERT INTO settlement_refs (gateway_name, external_reference, entry_id, created_at)
		VALUES ($1, $2, $3, $4);
	`, m.GatewayName, m.ExternalReference, m.EntryID, m.CreatedAt)
	if err != nil {
		mapped := mapPgError(err, fmt.Sprintf("failed to insert settlement reference %s", ref.Key()))
		if errors.Is(mapped, apperrors.ErrDuplicate) {
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateReference, ref.Key())
		}
		return mapped
	}
	return nil
}

func (u *pgxUnitOfWork) FindSettlementRefForUpdate(ctx context.Context, key domain.RefKey) (*domain.ExternalSettlementRef, error) {
	var m models.SettlementRef
	err := u.tx.QueryRow(ctx, `
		SELECT gateway_name, external_reference, entry_id, created_at
		FROM settlement_refs
		WHERE gateway_name = $1 AND external_reference = $2
		FOR UPDATE;
	`, key.GatewayName, key.ExternalReference).Scan(&m.GatewayName, &m.ExternalReference, &m.EntryID, &m.CreatedAt)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("settlement reference %s not found", key))
	}
	ref := mapping.ToDomainSettlementRef(m)
	return &ref, nil
}

func (u *pgxUnitOfWork) FindReversalOf(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE reverses_entry_id = $1;`
	e, err := scanEntry(u.tx.QueryRow(ctx, query, entryID))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("no reversal of entry %s", entryID))
	}
	return e, nil
}

// prefixed qualifies every column of a list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// jsonArg keeps absent payloads NULL instead of the JSON literal null.
func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
