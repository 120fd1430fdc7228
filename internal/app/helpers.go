package app

import (
	"context"

	"github.com/smartdoorlock/core/internal/config"
	"github.com/smartdoorlock/core/internal/pkg/bark"
	"github.com/smartdoorlock/core/internal/pkg/push"
)

// newPushSender returns nil for the none driver, which makes the dispatcher
// drop every notification.
func newPushSender(ctx context.Context, cfg config.PushConfig) (push.Sender, error) {
	switch cfg.Driver {
	case config.PushFCM:
		return push.NewFCMSender(ctx, cfg.FCM.CredentialsFile)
	case config.PushBark:
		return push.NewBarkSender(bark.New(cfg.Bark.ServerURL, cfg.Bark.Key)), nil
	default:
		return nil, nil
	}
}
