package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/models"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
)

func newAccount(t *testing.T, s *Store, name string, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertAccount(ctx, &models.Account{ID: id, Username: name}); err != nil {
			return err
		}
		_, err := tx.AdjustBalance(ctx, id, balance)
		return err
	})
	require.NoError(t, err)
	return id
}

func newRoom(creator uuid.UUID, created time.Time) *models.Room {
	id := uuid.New()
	return &models.Room{
		ID:             id,
		CreatedBy:      creator,
		Stake:          10,
		CommissionRate: decimal.RequireFromString("0.02"),
		Capacity:       2,
		Status:         models.RoomStatusWaiting,
		Participants: []models.Participant{
			{RoomID: id, AccountID: creator, Seat: "red", Position: 1, StakePaid: true, JoinedAt: created},
		},
		CreatedAt: created,
	}
}

func TestNew_SeedsPlatformAccount(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	acc, err := s.GetAccount(context.Background(), models.PlatformAccountID)
	require.NoError(t, err)
	assert.True(t, acc.IsSystemAccount)
	assert.Zero(t, acc.Balance)
}

func TestInTx_AbortsOnError(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	id := newAccount(t, s, "alice", 100)

	boom := errors.New("boom")
	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AdjustBalance(ctx, id, -60); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := s.GetAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Balance)
}

func TestInTx_RespectsCancelledContext(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = s.InTx(ctx, func(context.Context, store.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAdjustBalance_RejectsNegative(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	id := newAccount(t, s, "bob", 5)

	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.AdjustBalance(ctx, id, -10)
		return err
	})
	require.ErrorIs(t, err, store.ErrNegativeBalance)

	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.AdjustBalance(ctx, uuid.New(), 1)
		return err
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdjustBalance_RejectsOverflow(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	id := newAccount(t, s, "carol", math.MaxInt64-5)

	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.AdjustBalance(ctx, id, 6)
		return err
	})
	require.ErrorIs(t, err, store.ErrBalanceOverflow)

	acc, err := s.GetAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-5), acc.Balance)
}

func TestUpdateRoom_VersionCheck(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	creator := newAccount(t, s, "carol", 50)
	room := newRoom(creator, time.Now())

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertRoom(ctx, room)
	}))
	assert.Equal(t, int64(1), room.Version)

	stale := room.Clone()

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRoomForUpdate(ctx, room.ID)
		if err != nil {
			return err
		}
		r.Status = models.RoomStatusCancelled
		return tx.UpdateRoom(ctx, r)
	}))

	err = s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateRoom(ctx, stale)
	})
	require.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := s.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusCancelled, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestGetRoom_ReturnsCopies(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	creator := newAccount(t, s, "dave", 50)
	room := newRoom(creator, time.Now())
	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertRoom(ctx, room)
	}))

	got, err := s.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	got.Participants[0].IsWinner = true
	got.Status = models.RoomStatusCompleted

	again, err := s.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, again.Participants[0].IsWinner)
	assert.Equal(t, models.RoomStatusWaiting, again.Status)

	_, err = s.GetRoom(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRooms_Filters(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	alice := newAccount(t, s, "alice", 50)
	bob := newAccount(t, s, "bob", 50)

	base := time.Now()
	older := newRoom(alice, base.Add(-time.Minute))
	newer := newRoom(bob, base)
	full := newRoom(alice, base.Add(-2*time.Minute))
	full.Participants = append(full.Participants, models.Participant{RoomID: full.ID, AccountID: bob, Seat: "blue", Position: 2, StakePaid: true})
	done := newRoom(bob, base.Add(-3*time.Minute))
	done.Status = models.RoomStatusCompleted

	require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, r := range []*models.Room{older, newer, full, done} {
			if err := tx.InsertRoom(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	open, err := s.ListRooms(context.Background(), models.RoomFilter{OnlyOpen: true})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, newer.ID, open[0].ID)
	assert.Equal(t, older.ID, open[1].ID)

	completed, err := s.ListRooms(context.Background(), models.RoomFilter{Status: models.RoomStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	mine, err := s.ListRooms(context.Background(), models.RoomFilter{Participant: &bob})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	limited, err := s.ListRooms(context.Background(), models.RoomFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	id := newAccount(t, s, "erin", 0)

	for i := int64(1); i <= 3; i++ {
		amount := i
		require.NoError(t, s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			return tx.InsertTransaction(ctx, &models.LedgerTransaction{
				ID: uuid.New(), AccountID: id, Kind: models.TxKindDeposit, Amount: amount, Status: models.TxStatusCompleted,
			})
		}))
	}

	all, err := s.ListTransactions(context.Background(), id, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].Amount)
	assert.Equal(t, int64(1), all[2].Amount)

	two, err := s.ListTransactions(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}
