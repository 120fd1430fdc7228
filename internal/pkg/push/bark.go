package push

import (
	"context"

	"github.com/smartdoorlock/core/internal/pkg/bark"
)

// BarkSender forwards notifications to a single Bark device key, using the
// topic as the notification group. Every lock's alerts reach that one key,
// so it suits single-household deployments; per-device delivery needs fcm.
type BarkSender struct {
	svc *bark.Service
}

func NewBarkSender(svc *bark.Service) *BarkSender {
	return &BarkSender{svc: svc}
}

func (s *BarkSender) Send(ctx context.Context, n Notification) error {
	return s.svc.Push(ctx, n.Title, n.Body, n.Topic)
}
