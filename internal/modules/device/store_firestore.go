package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/smartdoorlock/core/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreStore struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

// NewFirestoreStore returns a Store backed by a Firestore collection whose
// document ids are session tokens.
func NewFirestoreStore(client *firestore.Client, collection string) Store {
	return &firestoreStore{
		client: client,
		coll:   client.Collection(collection),
	}
}

func (s *firestoreStore) Get(ctx context.Context, token string) (*models.DeviceModel, error) {
	snap, err := s.coll.Doc(token).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return decodeSnapshot(snap)
}

func (s *firestoreStore) Create(ctx context.Context, d *models.DeviceModel) error {
	doc := d.Clone()
	if _, err := s.coll.Doc(d.SessionToken).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicateToken
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (s *firestoreStore) Update(ctx context.Context, token string, fields Fields) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: firestoreValue(v)})
	}
	if _, err := s.coll.Doc(token).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update device: %w", err)
	}
	return nil
}

func (s *firestoreStore) AppendCard(ctx context.Context, token string, card models.Card) (bool, error) {
	ref := s.coll.Doc(token)
	added := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		added = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		d, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		var updates []firestore.Update
		updates, added = appendCardUpdates(d, card)
		return tx.Update(ref, updates)
	})
	if status.Code(err) == codes.NotFound {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("append card: %w", err)
	}
	return added, nil
}

func (s *firestoreStore) RenameCard(ctx context.Context, token, card, name string) error {
	ref := s.coll.Doc(token)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		d, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		updates, err := renameCardUpdates(d, card, name)
		if err != nil {
			return err
		}
		return tx.Update(ref, updates)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCardNotFound):
		return err
	case status.Code(err) == codes.NotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("rename card: %w", err)
	}
}

func (s *firestoreStore) CompletePairing(ctx context.Context, token string, at time.Time) (bool, error) {
	ref := s.coll.Doc(token)
	done := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		done = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		d, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		updates := completePairingUpdates(d, at)
		if updates == nil {
			return nil
		}
		done = true
		return tx.Update(ref, updates)
	})
	if status.Code(err) == codes.NotFound {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("complete pairing: %w", err)
	}
	return done, nil
}

func (s *firestoreStore) Close(context.Context) error {
	return s.client.Close()
}

// appendCardUpdates always clears add_card and appends the card only when
// it is not enrolled yet. Reports whether the card was added.
func appendCardUpdates(d *models.DeviceModel, card models.Card) ([]firestore.Update, bool) {
	updates := []firestore.Update{{Path: models.FieldAddCard, Value: false}}
	if d.HasCard(card.Card) {
		return updates, false
	}
	cards := append(append([]models.Card{}, d.Cards...), card)
	return append(updates, firestore.Update{Path: models.FieldCards, Value: cards}), true
}

func renameCardUpdates(d *models.DeviceModel, card, name string) ([]firestore.Update, error) {
	cards := append([]models.Card{}, d.Cards...)
	for i := range cards {
		if cards[i].Card == card {
			n := name
			cards[i].Name = &n
			return []firestore.Update{{Path: models.FieldCards, Value: cards}}, nil
		}
	}
	return nil, ErrCardNotFound
}

// completePairingUpdates is nil unless the device is still pairing.
func completePairingUpdates(d *models.DeviceModel, at time.Time) []firestore.Update {
	if d.Status != models.DeviceStatusPairing {
		return nil
	}
	return []firestore.Update{
		{Path: models.FieldStatus, Value: string(models.DeviceStatusPaired)},
		{Path: models.FieldPairingCompletedAt, Value: at},
	}
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*models.DeviceModel, error) {
	var d models.DeviceModel
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	d.SessionToken = snap.Ref.ID
	if d.Cards == nil {
		d.Cards = []models.Card{}
	}
	return &d, nil
}

func firestoreValue(v interface{}) interface{} {
	switch x := v.(type) {
	case models.DoorStatus:
		return string(x)
	case models.DeviceStatus:
		return string(x)
	default:
		return v
	}
}
