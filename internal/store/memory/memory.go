// Package memory is a go-memdb backed store. go-memdb allows a single write
// transaction at a time, so InTx calls are serialized and readers see
// committed snapshots only.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

const (
	tableAccounts     = "accounts"
	tableRooms        = "rooms"
	tableTransactions = "transactions"
	tableMoves        = "moves"
)

type accountRow struct {
	Key     string
	Account models.Account
}

type roomRow struct {
	Key    string
	Status string
	Room   *models.Room
}

type transactionRow struct {
	Key        string
	AccountKey string
	Seq        uint64
	Tx         models.LedgerTransaction
}

type moveRow struct {
	Key     string
	RoomKey string
	Move    models.Move
}

func idIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    "id",
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: "Key"},
	}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableAccounts: {
				Name:    tableAccounts,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
			},
			tableRooms: {
				Name: tableRooms,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     idIndex(),
					"status": {Name: "status", Indexer: &memdb.StringFieldIndex{Field: "Status"}},
				},
			},
			tableTransactions: {
				Name: tableTransactions,
				Indexes: map[string]*memdb.IndexSchema{
					"id":      idIndex(),
					"account": {Name: "account", Indexer: &memdb.StringFieldIndex{Field: "AccountKey"}},
				},
			},
			tableMoves: {
				Name: tableMoves,
				Indexes: map[string]*memdb.IndexSchema{
					"id":   idIndex(),
					"room": {Name: "room", Indexer: &memdb.StringFieldIndex{Field: "RoomKey"}},
				},
			},
		},
	}
}

// Store keeps all state in memory. Objects handed out are copies.
type Store struct {
	db  *memdb.MemDB
	seq atomic.Uint64
}

// New returns an empty store holding only the platform account.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	s := &Store{db: db}
	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertAccount(ctx, &models.Account{
			ID:              models.PlatformAccountID,
			Username:        "platform",
			IsSystemAccount: true,
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ store.Store = (*Store)(nil)

// InTx runs fn in a go-memdb write transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := fn(ctx, &tx{s: s, txn: txn}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// --- reads ---

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	return getAccount(txn, id)
}

func (s *Store) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	return getRoom(txn, id)
}

func (s *Store) ListRooms(_ context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	var (
		it  memdb.ResultIterator
		err error
	)
	switch {
	case filter.Status != "":
		it, err = txn.Get(tableRooms, "status", filter.Status)
	case filter.OnlyOpen:
		it, err = txn.Get(tableRooms, "status", models.RoomStatusWaiting)
	default:
		it, err = txn.Get(tableRooms, "id")
	}
	if err != nil {
		return nil, err
	}

	var rooms []*models.Room
	for obj := it.Next(); obj != nil; obj = it.Next() {
		r := obj.(*roomRow).Room
		if filter.OnlyOpen && (r.Status != models.RoomStatusWaiting || r.IsFull()) {
			continue
		}
		if filter.Participant != nil {
			if _, ok := r.Participant(*filter.Participant); !ok {
				continue
			}
		}
		rooms = append(rooms, r.Clone())
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID.String() < rooms[j].ID.String()
	})
	if filter.Limit > 0 && len(rooms) > filter.Limit {
		rooms = rooms[:filter.Limit]
	}
	return rooms, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableTransactions, "account", accountID.String())
	if err != nil {
		return nil, err
	}
	var rows []*transactionRow
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rows = append(rows, obj.(*transactionRow))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq > rows[j].Seq })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*models.LedgerTransaction, 0, len(rows))
	for _, row := range rows {
		t := row.Tx
		out = append(out, &t)
	}
	return out, nil
}

func (s *Store) ListMoves(_ context.Context, roomID uuid.UUID) ([]*models.Move, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableMoves, "room", roomID.String())
	if err != nil {
		return nil, err
	}
	var moves []*models.Move
	for obj := it.Next(); obj != nil; obj = it.Next() {
		m := obj.(*moveRow).Move
		moves = append(moves, &m)
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].MoveNumber < moves[j].MoveNumber })
	return moves, nil
}

func (s *Store) TopPlayers(_ context.Context, limit int) ([]*models.Account, error) {
	return s.rankPlayers(limit, func(a, b *models.Account) bool {
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		return a.Username < b.Username
	})
}

func (s *Store) TopEarners(_ context.Context, limit int) ([]*models.Account, error) {
	return s.rankPlayers(limit, func(a, b *models.Account) bool {
		if a.NetEarnings() != b.NetEarnings() {
			return a.NetEarnings() > b.NetEarnings()
		}
		return a.Username < b.Username
	})
}

func (s *Store) rankPlayers(limit int, less func(a, b *models.Account) bool) ([]*models.Account, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableAccounts, "id")
	if err != nil {
		return nil, err
	}
	var accounts []*models.Account
	for obj := it.Next(); obj != nil; obj = it.Next() {
		a := obj.(*accountRow).Account
		if a.IsSystemAccount || a.GamesPlayed == 0 {
			continue
		}
		accounts = append(accounts, &a)
	}
	sort.SliceStable(accounts, func(i, j int) bool { return less(accounts[i], accounts[j]) })
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *Store) PlatformStats(_ context.Context) (*models.PlatformStats, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	var stats models.PlatformStats

	it, err := txn.Get(tableAccounts, "id")
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if !obj.(*accountRow).Account.IsSystemAccount {
			stats.TotalAccounts++
		}
	}

	it, err = txn.Get(tableRooms, "id")
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		switch obj.(*roomRow).Status {
		case models.RoomStatusWaiting:
			stats.WaitingRooms++
		case models.RoomStatusInProgress:
			stats.InProgressRooms++
		case models.RoomStatusCompleted:
			stats.CompletedGames++
		}
	}

	it, err = txn.Get(tableTransactions, "id")
	if err != nil {
		return nil, err
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		t := obj.(*transactionRow).Tx
		switch t.Kind {
		case models.TxKindStakeHold:
			stats.TotalStaked += t.Amount
		case models.TxKindWinCredit:
			stats.TotalWinnings += t.Amount
		case models.TxKindCommission:
			stats.PlatformEarnings += t.Amount
		}
	}
	return &stats, nil
}

// --- transaction ---

type tx struct {
	s   *Store
	txn *memdb.Txn
}

func (t *tx) GetAccountForUpdate(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return getAccount(t.txn, id)
}

func (t *tx) InsertAccount(_ context.Context, a *models.Account) error {
	existing, err := t.txn.First(tableAccounts, "id", a.ID.String())
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrDuplicate
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	return t.txn.Insert(tableAccounts, &accountRow{Key: a.ID.String(), Account: *a})
}

func (t *tx) AdjustBalance(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	a, err := getAccount(t.txn, id)
	if err != nil {
		return 0, err
	}
	if delta > 0 && a.Balance > math.MaxInt64-delta {
		return 0, store.ErrBalanceOverflow
	}
	if a.Balance+delta < 0 {
		return 0, store.ErrNegativeBalance
	}
	a.Balance += delta
	a.UpdatedAt = time.Now().UTC()
	if err := t.txn.Insert(tableAccounts, &accountRow{Key: a.ID.String(), Account: *a}); err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (t *tx) UpdateAccountStats(_ context.Context, a *models.Account) error {
	current, err := getAccount(t.txn, a.ID)
	if err != nil {
		return err
	}
	current.GamesPlayed = a.GamesPlayed
	current.GamesWon = a.GamesWon
	current.AmountWon = a.AmountWon
	current.AmountLost = a.AmountLost
	current.UpdatedAt = time.Now().UTC()
	return t.txn.Insert(tableAccounts, &accountRow{Key: current.ID.String(), Account: *current})
}

func (t *tx) InsertTransaction(_ context.Context, lt *models.LedgerTransaction) error {
	existing, err := t.txn.First(tableTransactions, "id", lt.ID.String())
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrDuplicate
	}
	row := &transactionRow{
		Key:        lt.ID.String(),
		AccountKey: lt.AccountID.String(),
		Seq:        t.s.seq.Add(1),
		Tx:         *lt,
	}
	return t.txn.Insert(tableTransactions, row)
}

func (t *tx) GetRoomForUpdate(_ context.Context, id uuid.UUID) (*models.Room, error) {
	return getRoom(t.txn, id)
}

func (t *tx) InsertRoom(_ context.Context, r *models.Room) error {
	existing, err := t.txn.First(tableRooms, "id", r.ID.String())
	if err != nil {
		return err
	}
	if existing != nil {
		return store.ErrDuplicate
	}
	r.Version = 1
	return t.txn.Insert(tableRooms, &roomRow{Key: r.ID.String(), Status: r.Status, Room: r.Clone()})
}

func (t *tx) UpdateRoom(_ context.Context, r *models.Room) error {
	current, err := getRoom(t.txn, r.ID)
	if err != nil {
		return err
	}
	if current.Version != r.Version {
		return store.ErrVersionConflict
	}
	r.Version++
	return t.txn.Insert(tableRooms, &roomRow{Key: r.ID.String(), Status: r.Status, Room: r.Clone()})
}

func (t *tx) InsertMove(_ context.Context, m *models.Move) error {
	return t.txn.Insert(tableMoves, &moveRow{Key: m.ID.String(), RoomKey: m.RoomID.String(), Move: *m})
}

// --- helpers ---

func getAccount(txn *memdb.Txn, id uuid.UUID) (*models.Account, error) {
	obj, err := txn.First(tableAccounts, "id", id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, store.ErrNotFound
	}
	a := obj.(*accountRow).Account
	return &a, nil
}

func getRoom(txn *memdb.Txn, id uuid.UUID) (*models.Room, error) {
	obj, err := txn.First(tableRooms, "id", id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, store.ErrNotFound
	}
	return obj.(*roomRow).Room.Clone(), nil
}
