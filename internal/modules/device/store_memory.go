package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smartdoorlock/core/internal/models"
)

type memoryStore struct {
	mu      sync.RWMutex
	devices map[string]*models.DeviceModel
}

// NewMemoryStore returns a process-local Store. Records do not survive a restart.
func NewMemoryStore() Store {
	return &memoryStore{
		devices: make(map[string]*models.DeviceModel),
	}
}

func (s *memoryStore) Get(_ context.Context, token string) (*models.DeviceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[token]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *memoryStore) Create(_ context.Context, d *models.DeviceModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[d.SessionToken]; ok {
		return ErrDuplicateToken
	}
	s.devices[d.SessionToken] = d.Clone()
	return nil
}

func (s *memoryStore) Update(_ context.Context, token string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[token]
	if !ok {
		return ErrNotFound
	}
	next := d.Clone()
	for key, value := range fields {
		if err := applyField(next, key, value); err != nil {
			return err
		}
	}
	s.devices[token] = next
	return nil
}

func (s *memoryStore) AppendCard(_ context.Context, token string, card models.Card) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[token]
	if !ok {
		return false, ErrNotFound
	}
	d.AddCard = false
	if d.HasCard(card.Card) {
		return false, nil
	}
	d.Cards = append(d.Cards, card)
	return true, nil
}

func (s *memoryStore) RenameCard(_ context.Context, token, card, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[token]
	if !ok {
		return ErrNotFound
	}
	for i := range d.Cards {
		if d.Cards[i].Card == card {
			n := name
			d.Cards[i].Name = &n
			return nil
		}
	}
	return ErrCardNotFound
}

func (s *memoryStore) CompletePairing(_ context.Context, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[token]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != models.DeviceStatusPairing {
		return false, nil
	}
	t := at
	d.PairingCompletedAt = &t
	d.Status = models.DeviceStatusPaired
	return true, nil
}

func (s *memoryStore) Close(context.Context) error { return nil }

func applyField(d *models.DeviceModel, key string, value interface{}) error {
	var ok bool
	switch key {
	case models.FieldOnline:
		d.Online, ok = value.(bool)
	case models.FieldAddCard:
		d.AddCard, ok = value.(bool)
	case models.FieldDoorStatus:
		d.DoorStatus, ok = value.(models.DoorStatus)
	case models.FieldStatus:
		d.Status, ok = value.(models.DeviceStatus)
	case models.FieldPairingCompletedAt:
		var t time.Time
		if t, ok = value.(time.Time); ok {
			d.PairingCompletedAt = &t
		}
	case models.FieldCards:
		var cards []models.Card
		if cards, ok = value.([]models.Card); ok {
			d.Cards = append([]models.Card(nil), cards...)
		}
	default:
		return fmt.Errorf("unsupported field %q", key)
	}
	if !ok {
		return fmt.Errorf("field %q: unexpected value type %T", key, value)
	}
	return nil
}
