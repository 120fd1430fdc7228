package lock

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	pkgredis "github.com/smartdoorlock/core/internal/pkg/redis"
	"go.uber.org/zap"
)

const pairingClaimTTL = time.Minute

// PairingClaimer elects a single writer for a token's pairing completion
// across server instances.
type PairingClaimer interface {
	Claim(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
}

type redisClaimer struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

// NewRedisClaimer returns a PairingClaimer built on SETNX.
func NewRedisClaimer(rc *pkgredis.Client) PairingClaimer {
	return &redisClaimer{rc: rc, ttl: pairingClaimTTL}
}

func (c *redisClaimer) Claim(ctx context.Context, token string) (bool, error) {
	return c.rc.SetNX(ctx, pairingClaimKey(token), 1, c.ttl)
}

func (c *redisClaimer) Release(ctx context.Context, token string) error {
	return c.rc.Del(ctx, pairingClaimKey(token))
}

func pairingClaimKey(token string) string {
	return "doorlock:pairing:" + token
}

// pairingGate performs the one-shot pairing -> paired transition for a live
// session. The store write is itself conditional on status == pairing.
type pairingGate struct {
	store   device.Store
	claimer PairingClaimer
	clock   clock.Clock
	logger  *zap.Logger
}

func (g *pairingGate) complete(ctx context.Context, token string, shadow *Shadow) {
	if shadow.pairingIssued {
		return
	}

	claimed := false
	if g.claimer != nil {
		ok, err := g.claimer.Claim(ctx, token)
		switch {
		case err != nil:
			g.logger.Warn("pairing claim unavailable, relying on store condition", zap.Error(err))
		case !ok:
			return
		default:
			claimed = true
		}
	}

	done, err := g.store.CompletePairing(ctx, token, g.clock.Now())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("complete_pairing").Inc()
		g.logger.Warn("complete pairing failed", zap.String("token", tokenHint(token)), zap.Error(err))
		if claimed {
			_ = g.claimer.Release(ctx, token)
		}
		return
	}
	shadow.pairingIssued = true
	if done {
		g.logger.Info("device paired", zap.String("token", tokenHint(token)))
	}
}
