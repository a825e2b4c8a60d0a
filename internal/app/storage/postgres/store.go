package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/governance"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/swap"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL. Amounts are
// persisted as NUMERIC(78,0) so full 256-bit values survive round trips.
type Store struct {
	db *sqlx.DB
}

var _ storage.BridgeStore = (*Store)(nil)
var _ storage.UsageStore = (*Store)(nil)
var _ storage.ChainLimitStore = (*Store)(nil)
var _ storage.ExemptionStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.SupplyStore = (*Store)(nil)
var _ storage.ReceiptStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func amountParam(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// --- BridgeStore ------------------------------------------------------------

type bridgeRow struct {
	Token       string    `db:"token"`
	Cap         string    `db:"cap"`
	HourlyLimit string    `db:"hourly_limit"`
	Fee         int64     `db:"fee"`
	Allowed     bool      `db:"allowed"`
	Paused      bool      `db:"paused"`
	Slot        int64     `db:"slot"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r bridgeRow) toConfig() (bridge.Config, error) {
	cap, err := parseAmount(r.Cap)
	if err != nil {
		return bridge.Config{}, err
	}
	limit, err := parseAmount(r.HourlyLimit)
	if err != nil {
		return bridge.Config{}, err
	}
	return bridge.Config{
		Token:       common.HexToAddress(r.Token),
		Cap:         cap,
		HourlyLimit: limit,
		Fee:         uint64(r.Fee),
		Allowed:     r.Allowed,
		Paused:      r.Paused,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func (s *Store) CreateBridge(ctx context.Context, cfg bridge.Config) (bridge.Config, error) {
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bridge_configs (token, cap, hourly_limit, fee, allowed, paused, slot, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, COALESCE(MAX(slot) + 1, 0), $7, $8
		FROM bridge_configs
	`, cfg.Token.Hex(), amountParam(cfg.Cap), amountParam(cfg.HourlyLimit), int64(cfg.Fee),
		cfg.Allowed, cfg.Paused, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return bridge.Config{}, fmt.Errorf("bridge %s already registered", cfg.Token.Hex())
		}
		return bridge.Config{}, err
	}
	return cfg, nil
}

func (s *Store) UpdateBridge(ctx context.Context, cfg bridge.Config) (bridge.Config, error) {
	cfg.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE bridge_configs
		SET cap = $2, hourly_limit = $3, fee = $4, allowed = $5, paused = $6, updated_at = $7
		WHERE token = $1
	`, cfg.Token.Hex(), amountParam(cfg.Cap), amountParam(cfg.HourlyLimit), int64(cfg.Fee),
		cfg.Allowed, cfg.Paused, cfg.UpdatedAt)
	if err != nil {
		return bridge.Config{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", cfg.Token.Hex(), storage.ErrNotFound)
	}
	return cfg, nil
}

func (s *Store) GetBridge(ctx context.Context, tok common.Address) (bridge.Config, error) {
	var row bridgeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT token, cap, hourly_limit, fee, allowed, paused, slot, created_at, updated_at
		FROM bridge_configs
		WHERE token = $1
	`, tok.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", tok.Hex(), storage.ErrNotFound)
	}
	if err != nil {
		return bridge.Config{}, err
	}
	return row.toConfig()
}

// DeleteBridge removes the config and moves the highest-slot entry into the
// vacated slot, mirroring swap-with-last-and-pop enumeration semantics.
func (s *Store) DeleteBridge(ctx context.Context, tok common.Address) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var victimSlot int64
	err = tx.GetContext(ctx, &victimSlot, `SELECT slot FROM bridge_configs WHERE token = $1`, tok.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bridge %s: %w", tok.Hex(), storage.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_configs WHERE token = $1`, tok.Hex()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE bridge_configs SET slot = $1
		WHERE slot = (SELECT MAX(slot) FROM bridge_configs) AND slot > $1
	`, victimSlot)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListBridges(ctx context.Context) ([]bridge.Config, error) {
	var rows []bridgeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT token, cap, hourly_limit, fee, allowed, paused, slot, created_at, updated_at
		FROM bridge_configs
		ORDER BY slot
	`)
	if err != nil {
		return nil, err
	}

	out := make([]bridge.Config, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *Store) ListBridgeTokens(ctx context.Context) ([]common.Address, error) {
	var tokens []string
	err := s.db.SelectContext(ctx, &tokens, `SELECT token FROM bridge_configs ORDER BY slot`)
	if err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, common.HexToAddress(tok))
	}
	return out, nil
}

// --- UsageStore -------------------------------------------------------------

func (s *Store) AddBridgeUsage(ctx context.Context, tok common.Address, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	var total string
	err := s.db.GetContext(ctx, &total, `
		INSERT INTO bridge_usage (token, hour, volume)
		VALUES ($1, $2, $3)
		ON CONFLICT (token, hour) DO UPDATE SET volume = bridge_usage.volume + EXCLUDED.volume
		RETURNING volume
	`, tok.Hex(), hour, amountParam(amount))
	if err != nil {
		return nil, err
	}
	return parseAmount(total)
}

func (s *Store) BridgeUsage(ctx context.Context, tok common.Address, hour int64) (*uint256.Int, error) {
	var volume string
	err := s.db.GetContext(ctx, &volume, `
		SELECT volume FROM bridge_usage WHERE token = $1 AND hour = $2
	`, tok.Hex(), hour)
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(volume)
}

func (s *Store) AddChainUsage(ctx context.Context, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	var total string
	err := s.db.GetContext(ctx, &total, `
		INSERT INTO chain_usage (hour, volume)
		VALUES ($1, $2)
		ON CONFLICT (hour) DO UPDATE SET volume = chain_usage.volume + EXCLUDED.volume
		RETURNING volume
	`, hour, amountParam(amount))
	if err != nil {
		return nil, err
	}
	return parseAmount(total)
}

func (s *Store) ChainUsage(ctx context.Context, hour int64) (*uint256.Int, error) {
	var volume string
	err := s.db.GetContext(ctx, &volume, `SELECT volume FROM chain_usage WHERE hour = $1`, hour)
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(volume)
}

func (s *Store) PruneUsageBefore(ctx context.Context, cutoff int64) (int64, error) {
	var removed int64

	result, err := s.db.ExecContext(ctx, `DELETE FROM bridge_usage WHERE hour < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	if rows, err := result.RowsAffected(); err == nil {
		removed += rows
	}

	result, err = s.db.ExecContext(ctx, `DELETE FROM chain_usage WHERE hour < $1`, cutoff)
	if err != nil {
		return removed, err
	}
	if rows, err := result.RowsAffected(); err == nil {
		removed += rows
	}
	return removed, nil
}

// --- ChainLimitStore --------------------------------------------------------

func (s *Store) ChainHourlyLimit(ctx context.Context) (*uint256.Int, error) {
	var limit string
	err := s.db.GetContext(ctx, &limit, `SELECT hourly_limit FROM chain_settings WHERE id = TRUE`)
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(limit)
}

func (s *Store) SetChainHourlyLimit(ctx context.Context, limit *uint256.Int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_settings (id, hourly_limit)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET hourly_limit = EXCLUDED.hourly_limit
	`, amountParam(limit))
	return err
}

// --- ExemptionStore ---------------------------------------------------------

func (s *Store) SetFeeExemption(ctx context.Context, addr common.Address, exempt bool) error {
	if exempt {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO fee_exemptions (address, created_at)
			VALUES ($1, $2)
			ON CONFLICT (address) DO NOTHING
		`, addr.Hex(), time.Now().UTC())
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM fee_exemptions WHERE address = $1`, addr.Hex())
	return err
}

func (s *Store) IsFeeExempt(ctx context.Context, addr common.Address) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM fee_exemptions WHERE address = $1)
	`, addr.Hex())
	return exists, err
}

func (s *Store) ListFeeExemptions(ctx context.Context) ([]common.Address, error) {
	var addrs []string
	err := s.db.SelectContext(ctx, &addrs, `SELECT address FROM fee_exemptions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, common.HexToAddress(addr))
	}
	return out, nil
}

// --- BalanceStore -----------------------------------------------------------

func (s *Store) AssetBalance(ctx context.Context, asset, holder common.Address) (*uint256.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `
		SELECT balance FROM asset_balances WHERE asset = $1 AND holder = $2
	`, asset.Hex(), holder.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (s *Store) CreditAsset(ctx context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `
		INSERT INTO asset_balances (asset, holder, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset, holder) DO UPDATE SET balance = asset_balances.balance + EXCLUDED.balance
		RETURNING balance
	`, asset.Hex(), holder.Hex(), amountParam(amount))
	if err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (s *Store) DebitAsset(ctx context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `
		UPDATE asset_balances
		SET balance = balance - $3
		WHERE asset = $1 AND holder = $2 AND balance >= $3
		RETURNING balance
	`, asset.Hex(), holder.Hex(), amountParam(amount))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s holder %s: %w", asset.Hex(), holder.Hex(), token.ErrInsufficientBalance)
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

// --- SupplyStore ------------------------------------------------------------

func (s *Store) CanonicalBalance(ctx context.Context, holder common.Address) (*uint256.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `
		SELECT balance FROM canonical_balances WHERE holder = $1
	`, holder.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (s *Store) CanonicalSupply(ctx context.Context) (*uint256.Int, error) {
	var total string
	err := s.db.GetContext(ctx, &total, `SELECT total FROM canonical_supply WHERE id = TRUE`)
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(total)
}

func (s *Store) MintCanonical(ctx context.Context, to common.Address, amount *uint256.Int) (*uint256.Int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var balance string
	err = tx.GetContext(ctx, &balance, `
		INSERT INTO canonical_balances (holder, balance)
		VALUES ($1, $2)
		ON CONFLICT (holder) DO UPDATE SET balance = canonical_balances.balance + EXCLUDED.balance
		RETURNING balance
	`, to.Hex(), amountParam(amount))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO canonical_supply (id, total)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET total = canonical_supply.total + EXCLUDED.total
	`, amountParam(amount))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (s *Store) BurnCanonical(ctx context.Context, from common.Address, amount *uint256.Int) (*uint256.Int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var balance string
	err = tx.GetContext(ctx, &balance, `
		UPDATE canonical_balances
		SET balance = balance - $2
		WHERE holder = $1 AND balance >= $2
		RETURNING balance
	`, from.Hex(), amountParam(amount))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holder %s: %w", from.Hex(), token.ErrInsufficientBalance)
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE canonical_supply SET total = total - $1 WHERE id = TRUE
	`, amountParam(amount))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (s *Store) AddMinter(ctx context.Context, addr common.Address) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canonical_minters (address, created_at)
		VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING
	`, addr.Hex(), time.Now().UTC())
	return err
}

func (s *Store) RemoveMinter(ctx context.Context, addr common.Address) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM canonical_minters WHERE address = $1`, addr.Hex())
	return err
}

func (s *Store) IsMinter(ctx context.Context, addr common.Address) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM canonical_minters WHERE address = $1)
	`, addr.Hex())
	return exists, err
}

func (s *Store) ListMinters(ctx context.Context) ([]common.Address, error) {
	var addrs []string
	err := s.db.SelectContext(ctx, &addrs, `SELECT address FROM canonical_minters ORDER BY created_at`)
	if err != nil {
		return nil, err
	}

	out := make([]common.Address, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, common.HexToAddress(addr))
	}
	return out, nil
}

// --- ReceiptStore -----------------------------------------------------------

type swapReceiptRow struct {
	ID        string    `db:"id"`
	Direction string    `db:"direction"`
	Token     string    `db:"token"`
	Caller    string    `db:"caller"`
	Recipient string    `db:"recipient"`
	Requested string    `db:"requested"`
	Accepted  string    `db:"accepted"`
	Realized  string    `db:"realized"`
	Fee       string    `db:"fee"`
	Hour      int64     `db:"hour"`
	CreatedAt time.Time `db:"created_at"`
}

func (r swapReceiptRow) toReceipt() swap.Receipt {
	return swap.Receipt{
		ID:        r.ID,
		Direction: swap.Direction(r.Direction),
		Token:     common.HexToAddress(r.Token),
		Caller:    common.HexToAddress(r.Caller),
		Recipient: common.HexToAddress(r.Recipient),
		Requested: r.Requested,
		Accepted:  r.Accepted,
		Realized:  r.Realized,
		Fee:       r.Fee,
		Hour:      r.Hour,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Store) CreateSwapReceipt(ctx context.Context, rcpt swap.Receipt) (swap.Receipt, error) {
	if rcpt.ID == "" {
		rcpt.ID = uuid.NewString()
	}
	if rcpt.CreatedAt.IsZero() {
		rcpt.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swap_receipts (id, direction, token, caller, recipient, requested, accepted, realized, fee, hour, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rcpt.ID, string(rcpt.Direction), rcpt.Token.Hex(), rcpt.Caller.Hex(), rcpt.Recipient.Hex(),
		rcpt.Requested, rcpt.Accepted, rcpt.Realized, rcpt.Fee, rcpt.Hour, rcpt.CreatedAt)
	if err != nil {
		return swap.Receipt{}, err
	}
	return rcpt, nil
}

func (s *Store) ListSwapReceipts(ctx context.Context, tok common.Address, limit int) ([]swap.Receipt, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []swapReceiptRow
	var err error
	if bridge.IsNullToken(tok) {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, direction, token, caller, recipient, requested, accepted, realized, fee, hour, created_at
			FROM swap_receipts
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, direction, token, caller, recipient, requested, accepted, realized, fee, hour, created_at
			FROM swap_receipts
			WHERE token = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, tok.Hex(), limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]swap.Receipt, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toReceipt())
	}
	return out, nil
}

type gatewayReceiptRow struct {
	ID        string    `db:"id"`
	Operation string    `db:"operation"`
	Account   string    `db:"account"`
	Amount    string    `db:"amount"`
	Digest    string    `db:"digest"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) CreateGatewayReceipt(ctx context.Context, rcpt gateway.Receipt) (gateway.Receipt, error) {
	if rcpt.ID == "" {
		rcpt.ID = uuid.NewString()
	}
	if rcpt.CreatedAt.IsZero() {
		rcpt.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gateway_receipts (id, operation, account, amount, digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rcpt.ID, string(rcpt.Operation), rcpt.User.Hex(), rcpt.Amount, rcpt.Digest.Hex(), rcpt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return gateway.Receipt{}, fmt.Errorf("digest %s: %w", rcpt.Digest.Hex(), gateway.ErrDuplicateDeposit)
		}
		return gateway.Receipt{}, err
	}
	return rcpt, nil
}

func (s *Store) ListGatewayReceipts(ctx context.Context, limit int) ([]gateway.Receipt, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []gatewayReceiptRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, operation, account, amount, digest, created_at
		FROM gateway_receipts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]gateway.Receipt, 0, len(rows))
	for _, row := range rows {
		out = append(out, gateway.Receipt{
			ID:        row.ID,
			Operation: gateway.Operation(row.Operation),
			User:      common.HexToAddress(row.Account),
			Amount:    row.Amount,
			Digest:    common.HexToHash(row.Digest),
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// --- AuditStore -------------------------------------------------------------

type auditRow struct {
	ID        string    `db:"id"`
	Caller    string    `db:"caller"`
	Role      string    `db:"role"`
	Action    string    `db:"action"`
	Target    string    `db:"target"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) AppendAudit(ctx context.Context, entry governance.AuditEntry) (governance.AuditEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO governance_audit (id, caller, role, action, target, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Caller.Hex(), string(entry.Role), entry.Action, entry.Target, entry.Detail, entry.CreatedAt)
	if err != nil {
		return governance.AuditEntry{}, err
	}
	return entry, nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]governance.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, caller, role, action, target, detail, created_at
		FROM governance_audit
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]governance.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, governance.AuditEntry{
			ID:        row.ID,
			Caller:    common.HexToAddress(row.Caller),
			Role:      governance.Role(row.Role),
			Action:    row.Action,
			Target:    row.Target,
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
