package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartdoorlock/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore returns a Store backed by a MongoDB collection. The session
// token is the document _id, so uniqueness is enforced by the primary index.
func NewMongoStore(client *mongo.Client, database, collection string) Store {
	return &mongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

func (s *mongoStore) Get(ctx context.Context, token string) (*models.DeviceModel, error) {
	var d models.DeviceModel
	err := s.coll.FindOne(ctx, bson.M{"_id": token}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	if d.Cards == nil {
		d.Cards = []models.Card{}
	}
	return &d, nil
}

func (s *mongoStore) Create(ctx context.Context, d *models.DeviceModel) error {
	doc := d.Clone()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

func (s *mongoStore) Update(ctx context.Context, token string, fields Fields) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": token}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) AppendCard(ctx context.Context, token string, card models.Card) (bool, error) {
	filter, update := appendCardOp(token, card)
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("append card: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	// Either the record is gone or the card is already enrolled.
	if err := s.Update(ctx, token, Fields{models.FieldAddCard: false}); err != nil {
		return false, err
	}
	return false, nil
}

func (s *mongoStore) RenameCard(ctx context.Context, token, card, name string) error {
	filter, update := renameCardOp(token, card, name)
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("rename card: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": token})
	if err != nil {
		return fmt.Errorf("count device: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrCardNotFound
}

func (s *mongoStore) CompletePairing(ctx context.Context, token string, at time.Time) (bool, error) {
	filter, update := completePairingOp(token, at)
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("complete pairing: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

const cardIDPath = models.FieldCards + ".card"

// appendCardOp matches only when the card is not enrolled yet, so the push
// and the add_card reset land in one atomic update.
func appendCardOp(token string, card models.Card) (filter, update bson.M) {
	filter = bson.M{"_id": token, cardIDPath: bson.M{"$ne": card.Card}}
	update = bson.M{
		"$push": bson.M{models.FieldCards: card},
		"$set":  bson.M{models.FieldAddCard: false},
	}
	return filter, update
}

func renameCardOp(token, card, name string) (filter, update bson.M) {
	filter = bson.M{"_id": token, cardIDPath: card}
	update = bson.M{"$set": bson.M{models.FieldCards + ".$.name": name}}
	return filter, update
}

func completePairingOp(token string, at time.Time) (filter, update bson.M) {
	filter = bson.M{"_id": token, models.FieldStatus: models.DeviceStatusPairing}
	update = bson.M{"$set": bson.M{
		models.FieldStatus:             models.DeviceStatusPaired,
		models.FieldPairingCompletedAt: at,
	}}
	return filter, update
}
