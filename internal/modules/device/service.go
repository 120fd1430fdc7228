package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/pkg/credential"
)

const maxTokenAttempts = 5

type Service struct {
	store       Store
	tokenLength int
	now         func() time.Time
}

func NewService(store Store, tokenLength int) *Service {
	if tokenLength <= 0 {
		tokenLength = credential.DefaultTokenLength
	}
	return &Service{store: store, tokenLength: tokenLength, now: time.Now}
}

// RequestPairing creates a fresh record for deviceID and returns its session token.
func (s *Service) RequestPairing(ctx context.Context, deviceID string) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := credential.GenerateToken(s.tokenLength)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		d := &models.DeviceModel{
			SessionToken:       token,
			DeviceID:           deviceID,
			PairingRequestedAt: s.now(),
			Status:             models.DeviceStatusPairing,
			DoorStatus:         models.DoorLocked,
			Online:             false,
			AddCard:            false,
			Cards:              []models.Card{},
		}
		err = s.store.Create(ctx, d)
		if errors.Is(err, ErrDuplicateToken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("no unique token after %d attempts: %w", maxTokenAttempts, ErrDuplicateToken)
}

func (s *Service) Get(ctx context.Context, token string) (*models.DeviceModel, error) {
	return s.store.Get(ctx, token)
}

// RequestCardEnrollment asks the device to enter card enrollment mode on its
// next reconciliation tick.
func (s *Service) RequestCardEnrollment(ctx context.Context, token string) error {
	return s.store.Update(ctx, token, Fields{models.FieldAddCard: true})
}

func (s *Service) RenameCard(ctx context.Context, token, card, name string) error {
	return s.store.RenameCard(ctx, token, card, name)
}

// SetDoorStatus writes the door state directly; the device picks it up on its
// next reconciliation tick.
func (s *Service) SetDoorStatus(ctx context.Context, token string, status models.DoorStatus) error {
	return s.store.Update(ctx, token, Fields{models.FieldDoorStatus: status})
}
