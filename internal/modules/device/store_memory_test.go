package device

import (
	"context"
	"testing"
	"time"

	"github.com/smartdoorlock/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(token string) *models.DeviceModel {
	return &models.DeviceModel{
		SessionToken:       token,
		DeviceID:           "lock-01",
		PairingRequestedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:             models.DeviceStatusPairing,
		DoorStatus:         models.DoorLocked,
		Cards:              []models.Card{},
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, newRecord("t1")))
	assert.ErrorIs(t, s.Create(ctx, newRecord("t1")), ErrDuplicateToken)

	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "lock-01", d.DeviceID)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newRecord("t1")))

	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	d.Online = true
	d.Cards = append(d.Cards, models.Card{Card: "X"})

	again, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, again.Online)
	assert.Empty(t, again.Cards)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newRecord("t1")))

	require.NoError(t, s.Update(ctx, "t1", Fields{
		models.FieldOnline:     true,
		models.FieldDoorStatus: models.DoorUnlocked,
	}))
	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, d.Online)
	assert.Equal(t, models.DoorUnlocked, d.DoorStatus)

	assert.ErrorIs(t, s.Update(ctx, "nope", Fields{models.FieldOnline: true}), ErrNotFound)
	assert.Error(t, s.Update(ctx, "t1", Fields{"bogus": 1}))
	assert.Error(t, s.Update(ctx, "t1", Fields{models.FieldOnline: "yes"}))
}

func TestMemoryStoreAppendCard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := newRecord("t1")
	rec.AddCard = true
	require.NoError(t, s.Create(ctx, rec))

	added, err := s.AppendCard(ctx, "t1", models.Card{Card: "C1"})
	require.NoError(t, err)
	assert.True(t, added)

	require.NoError(t, s.Update(ctx, "t1", Fields{models.FieldAddCard: true}))
	added, err = s.AppendCard(ctx, "t1", models.Card{Card: "C1"})
	require.NoError(t, err)
	assert.False(t, added)

	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, d.CardIDs())
	assert.False(t, d.AddCard)

	_, err = s.AppendCard(ctx, "nope", models.Card{Card: "C1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRenameCard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newRecord("t1")))
	_, err := s.AppendCard(ctx, "t1", models.Card{Card: "C1"})
	require.NoError(t, err)

	require.NoError(t, s.RenameCard(ctx, "t1", "C1", "Front"))
	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, d.Cards[0].Name)
	assert.Equal(t, "Front", *d.Cards[0].Name)

	assert.ErrorIs(t, s.RenameCard(ctx, "t1", "C2", "Back"), ErrCardNotFound)
	assert.ErrorIs(t, s.RenameCard(ctx, "nope", "C1", "Back"), ErrNotFound)
}

func TestMemoryStoreCompletePairing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newRecord("t1")))
	first := time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)

	done, err := s.CompletePairing(ctx, "t1", first)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = s.CompletePairing(ctx, "t1", first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, done)

	d, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusPaired, d.Status)
	require.NotNil(t, d.PairingCompletedAt)
	assert.True(t, d.PairingCompletedAt.Equal(first))
}
