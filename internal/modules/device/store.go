package device

import (
	"context"
	"errors"
	"time"

	"github.com/smartdoorlock/core/internal/models"
)

var (
	ErrNotFound       = errors.New("device not found")
	ErrCardNotFound   = errors.New("card not found")
	ErrDuplicateToken = errors.New("session token already exists")
)

// Fields is a partial update keyed by the models.Field* names.
type Fields map[string]interface{}

// Store is the document store holding one record per paired device, keyed by
// session token. Every method is a single atomic operation against the backend.
type Store interface {
	// Get returns ErrNotFound when no record exists for token.
	Get(ctx context.Context, token string) (*models.DeviceModel, error)
	// Create returns ErrDuplicateToken when token is taken.
	Create(ctx context.Context, d *models.DeviceModel) error
	// Update sets the given fields. Returns ErrNotFound when no record exists.
	Update(ctx context.Context, token string, fields Fields) error
	// AppendCard adds card unless one with the same identifier exists, and
	// clears add_card in the same write. Reports whether the card was added.
	AppendCard(ctx context.Context, token string, card models.Card) (bool, error)
	// RenameCard sets the name of an enrolled card. Returns ErrCardNotFound
	// when the record has no such card.
	RenameCard(ctx context.Context, token, card, name string) error
	// CompletePairing moves status pairing -> paired, stamping at. It is a
	// no-op returning false if the stored status is not pairing.
	CompletePairing(ctx context.Context, token string, at time.Time) (bool, error)
	Close(ctx context.Context) error
}
