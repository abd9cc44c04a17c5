// Package postgres implements store.Store on PostgreSQL with pgx. Mutations
// lock the rows they read with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

// Migrate creates the tables if missing and seeds the platform account.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InTx begins a transaction, runs fn and commits. Any error rolls back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `id, username, balance, games_played, games_won, amount_won, amount_lost, is_system_account, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Balance, &a.GamesPlayed, &a.GamesWon, &a.AmountWon, &a.AmountLost, &a.IsSystemAccount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

const roomColumns = `id, created_by, stake, commission_rate::text, capacity, status, total_pool, commission_amount, payout_amount, winner_id, move_count, version, created_at, started_at, completed_at, cancelled_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		r    models.Room
		rate string
	)
	err := row.Scan(&r.ID, &r.CreatedBy, &r.Stake, &rate, &r.Capacity, &r.Status, &r.TotalPool, &r.CommissionAmount, &r.PayoutAmount, &r.WinnerID, &r.MoveCount, &r.Version, &r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.CancelledAt)
	if err != nil {
		return nil, notFound(err)
	}
	r.CommissionRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("commission rate %q: %w", rate, err)
	}
	return &r, nil
}

func loadParticipants(ctx context.Context, q querier, r *models.Room) error {
	rows, err := q.Query(ctx, `
		SELECT room_id, account_id, seat, position, stake_paid, is_winner, joined_at
		FROM room_participants WHERE room_id = $1 ORDER BY position
	`, r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	r.Participants = r.Participants[:0]
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.RoomID, &p.AccountID, &p.Seat, &p.Position, &p.StakePaid, &p.IsWinner, &p.JoinedAt); err != nil {
			return err
		}
		r.Participants = append(r.Participants, p)
	}
	return rows.Err()
}

func getRoom(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Room, error) {
	sql := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	r, err := scanRoom(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, err
	}
	if err := loadParticipants(ctx, q, r); err != nil {
		return nil, err
	}
	return r, nil
}

// --- reads ---

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return getRoom(ctx, s.pool, id, false)
}

func (s *Store) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OnlyOpen {
		where = append(where, `status = 'waiting' AND (SELECT count(*) FROM room_participants p WHERE p.room_id = rooms.id) < capacity`)
	}
	if filter.Participant != nil {
		args = append(args, *filter.Participant)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM room_participants p WHERE p.room_id = rooms.id AND p.account_id = $%d)", len(args)))
	}
	sql := `SELECT ` + roomColumns + ` FROM rooms`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var rooms []*models.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		rooms = append(rooms, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range rooms {
		if err := loadParticipants(ctx, s.pool, r); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, kind, amount, balance_after, status, room_id, description, created_at
		FROM ledger_transactions WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, accountID, nullableLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerTransaction
	for rows.Next() {
		var t models.LedgerTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.BalanceAfter, &t.Status, &t.RoomID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (s *Store) ListMoves(ctx context.Context, roomID uuid.UUID) ([]*models.Move, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, account_id, seat, move_number, dice_value, piece_moved, from_position, to_position, created_at
		FROM room_moves WHERE room_id = $1 ORDER BY move_number
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Move
	for rows.Next() {
		var m models.Move
		if err := rows.Scan(&m.ID, &m.RoomID, &m.AccountID, &m.Seat, &m.MoveNumber, &m.DiceValue, &m.PieceMoved, &m.FromPosition, &m.ToPosition, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (s *Store) TopPlayers(ctx context.Context, limit int) ([]*models.Account, error) {
	return s.listAccounts(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE NOT is_system_account AND games_played > 0
		ORDER BY games_won DESC, username
		LIMIT $1
	`, nullableLimit(limit))
}

func (s *Store) TopEarners(ctx context.Context, limit int) ([]*models.Account, error) {
	return s.listAccounts(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE NOT is_system_account AND games_played > 0
		ORDER BY amount_won - amount_lost DESC, username
		LIMIT $1
	`, nullableLimit(limit))
}

func (s *Store) listAccounts(ctx context.Context, sql string, args ...any) ([]*models.Account, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (s *Store) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	var st models.PlatformStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM accounts WHERE NOT is_system_account),
			(SELECT count(*) FROM rooms WHERE status = 'completed'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM ledger_transactions WHERE kind = 'stake_hold'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM ledger_transactions WHERE kind = 'win_credit'),
			(SELECT COALESCE(sum(amount), 0)::bigint FROM ledger_transactions WHERE kind = 'commission'),
			(SELECT count(*) FROM rooms WHERE status = 'waiting'),
			(SELECT count(*) FROM rooms WHERE status = 'in_progress')
	`).Scan(&st.TotalAccounts, &st.CompletedGames, &st.TotalStaked, &st.TotalWinnings, &st.PlatformEarnings, &st.WaitingRooms, &st.InProgressRooms)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// --- transaction ---

type pgTx struct {
	tx pgx.Tx
}

// GetAccountForUpdate locks the account row until the transaction ends.
func (t *pgTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertAccount(ctx context.Context, a *models.Account) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO accounts (id, username, balance, is_system_account)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, a.ID, a.Username, a.Balance, a.IsSystemAccount).Scan(&a.CreatedAt, &a.UpdatedAt)
	return duplicate(err)
}

// AdjustBalance applies delta only if the balance stays non-negative.
func (t *pgTx) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, delta, id).Scan(&balance)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22003" {
		return 0, store.ErrBalanceOverflow
	}
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrNegativeBalance
	}
	return balance, err
}

func (t *pgTx) UpdateAccountStats(ctx context.Context, a *models.Account) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET games_played = $2, games_won = $3, amount_won = $4, amount_lost = $5, updated_at = now()
		WHERE id = $1
	`, a.ID, a.GamesPlayed, a.GamesWon, a.AmountWon, a.AmountLost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, lt *models.LedgerTransaction) error {
	if lt.CreatedAt.IsZero() {
		lt.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_transactions (id, account_id, kind, amount, balance_after, status, room_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, lt.ID, lt.AccountID, lt.Kind, lt.Amount, lt.BalanceAfter, lt.Status, lt.RoomID, lt.Description, lt.CreatedAt)
	return duplicate(err)
}

// GetRoomForUpdate locks the room row; participants are read under that lock.
func (t *pgTx) GetRoomForUpdate(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return getRoom(ctx, t.tx, id, true)
}

func (t *pgTx) InsertRoom(ctx context.Context, r *models.Room) error {
	r.Version = 1
	_, err := t.tx.Exec(ctx, `
		INSERT INTO rooms (id, created_by, stake, commission_rate, capacity, status, total_pool, commission_amount, payout_amount, winner_id, move_count, version, created_at, started_at, completed_at, cancelled_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, r.ID, r.CreatedBy, r.Stake, r.CommissionRate.String(), r.Capacity, r.Status, r.TotalPool, r.CommissionAmount, r.PayoutAmount, r.WinnerID, r.MoveCount, r.Version, r.CreatedAt, r.StartedAt, r.CompletedAt, r.CancelledAt)
	if err != nil {
		return duplicate(err)
	}
	return t.upsertParticipants(ctx, r)
}

func (t *pgTx) UpdateRoom(ctx context.Context, r *models.Room) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE rooms SET status = $2, total_pool = $3, commission_amount = $4, payout_amount = $5, winner_id = $6,
			move_count = $7, started_at = $8, completed_at = $9, cancelled_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
	`, r.ID, r.Status, r.TotalPool, r.CommissionAmount, r.PayoutAmount, r.WinnerID, r.MoveCount, r.StartedAt, r.CompletedAt, r.CancelledAt, r.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	r.Version++
	return t.upsertParticipants(ctx, r)
}

func (t *pgTx) upsertParticipants(ctx context.Context, r *models.Room) error {
	for _, p := range r.Participants {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO room_participants (room_id, account_id, seat, position, stake_paid, is_winner, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (room_id, account_id) DO UPDATE SET stake_paid = EXCLUDED.stake_paid, is_winner = EXCLUDED.is_winner
		`, r.ID, p.AccountID, p.Seat, p.Position, p.StakePaid, p.IsWinner, p.JoinedAt)
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (t *pgTx) InsertMove(ctx context.Context, m *models.Move) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO room_moves (id, room_id, account_id, seat, move_number, dice_value, piece_moved, from_position, to_position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.RoomID, m.AccountID, m.Seat, m.MoveNumber, m.DiceValue, m.PieceMoved, m.FromPosition, m.ToPosition, m.CreatedAt)
	return duplicate(err)
}

// --- helpers ---

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// nullableLimit maps a non-positive limit to NULL, which Postgres treats as no limit.
func nullableLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
