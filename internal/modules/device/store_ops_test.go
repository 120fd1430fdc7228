package device

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/smartdoorlock/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoCardOps(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	appendFilter, appendUpdate := appendCardOp("tok", models.Card{Card: "A1"})
	renameFilter, renameUpdate := renameCardOp("tok", "A1", "Home")
	pairFilter, pairUpdate := completePairingOp("tok", at)

	cases := []struct {
		name           string
		filter, update bson.M
		wantFilter     bson.M
		wantUpdate     bson.M
	}{
		{
			name:       "append skips enrolled card",
			filter:     appendFilter,
			update:     appendUpdate,
			wantFilter: bson.M{"_id": "tok", "cards.card": bson.M{"$ne": "A1"}},
			wantUpdate: bson.M{
				"$push": bson.M{"cards": models.Card{Card: "A1"}},
				"$set":  bson.M{"add_card": false},
			},
		},
		{
			name:       "rename targets matched element",
			filter:     renameFilter,
			update:     renameUpdate,
			wantFilter: bson.M{"_id": "tok", "cards.card": "A1"},
			wantUpdate: bson.M{"$set": bson.M{"cards.$.name": "Home"}},
		},
		{
			name:       "pairing only from pairing",
			filter:     pairFilter,
			update:     pairUpdate,
			wantFilter: bson.M{"_id": "tok", "status": models.DeviceStatusPairing},
			wantUpdate: bson.M{"$set": bson.M{
				"status":               models.DeviceStatusPaired,
				"pairing_completed_at": at,
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantFilter, tc.filter)
			assert.Equal(t, tc.wantUpdate, tc.update)
		})
	}
}

func TestMongoAppendPushesNullName(t *testing.T) {
	_, update := appendCardOp("tok", models.Card{Card: "A1"})
	b, err := bson.Marshal(update)
	require.NoError(t, err)
	raw := bson.Raw(b)

	assert.Equal(t, "A1", raw.Lookup("$push", "cards", "card").StringValue())
	assert.Equal(t, bson.TypeNull, raw.Lookup("$push", "cards", "name").Type)
}

func TestFirestoreAppendCardUpdates(t *testing.T) {
	name := "Home"
	d := &models.DeviceModel{Cards: []models.Card{{Card: "A1", Name: &name}}}

	updates, added := appendCardUpdates(d, models.Card{Card: "B2"})
	require.True(t, added)
	assert.Equal(t, []firestore.Update{
		{Path: "add_card", Value: false},
		{Path: "cards", Value: []models.Card{{Card: "A1", Name: &name}, {Card: "B2"}}},
	}, updates)
	assert.Len(t, d.Cards, 1)

	updates, added = appendCardUpdates(d, models.Card{Card: "A1"})
	assert.False(t, added)
	assert.Equal(t, []firestore.Update{{Path: "add_card", Value: false}}, updates)
}

func TestFirestoreRenameCardUpdates(t *testing.T) {
	d := &models.DeviceModel{Cards: []models.Card{{Card: "A1"}, {Card: "B2"}}}

	updates, err := renameCardUpdates(d, "B2", "Back")
	require.NoError(t, err)
	require.Len(t, updates, 1)
	cards := updates[0].Value.([]models.Card)
	require.NotNil(t, cards[1].Name)
	assert.Equal(t, "Back", *cards[1].Name)
	assert.Nil(t, cards[0].Name)
	assert.Nil(t, d.Cards[1].Name)

	_, err = renameCardUpdates(d, "Z9", "x")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestFirestoreCompletePairingUpdates(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, completePairingUpdates(&models.DeviceModel{Status: models.DeviceStatusPaired}, at))
	assert.Equal(t, []firestore.Update{
		{Path: "status", Value: "paired"},
		{Path: "pairing_completed_at", Value: at},
	}, completePairingUpdates(&models.DeviceModel{Status: models.DeviceStatusPairing}, at))
}
