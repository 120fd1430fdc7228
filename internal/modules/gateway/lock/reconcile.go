package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Shadow is what this connection last told the device. The zero value is
// "unknown", which forces a full resync on the first tick.
type Shadow struct {
	cards            string
	cardsKnown       bool
	locked           bool
	lockKnown        bool
	addCardAnnounced bool
	pairingIssued    bool
}

// shadowNote carries state the device itself reported, so the loop does not
// echo it back as a command. Produced by the event handler after its store
// write succeeded and applied by the loop before its next read.
type shadowNote struct {
	locked         *bool
	addCardCleared bool
}

type commandSender interface {
	send(text string) error
}

type reconciler struct {
	token        string
	store        device.Store
	gate         *pairingGate
	out          commandSender
	notes        chan shadowNote
	shadow       Shadow
	storeTimeout time.Duration
	logger       *zap.Logger
}

// run ticks every interval until ctx is cancelled.
func (r *reconciler) run(ctx context.Context, clk clock.Clock, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-clk.After(interval):
		}
		if ctx.Err() != nil {
			return
		}
		if err := r.tick(ctx); err != nil {
			r.logger.Debug("reconcile send failed", zap.Error(err))
		}
	}
}

// tick brings the device in line with the stored record. Only send errors
// are returned; store trouble skips the tick.
func (r *reconciler) tick(ctx context.Context) error {
	r.drainNotes()

	sctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	d, err := r.store.Get(sctx, r.token)
	if errors.Is(err, device.ErrNotFound) {
		return nil
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("reconcile").Inc()
		r.logger.Warn("reconcile read failed, skipping tick", zap.Error(err))
		return nil
	}

	if d.Status == models.DeviceStatusPairing {
		r.gate.complete(sctx, r.token, &r.shadow)
	}

	flat := strings.Join(d.CardIDs(), " ")
	if !r.shadow.cardsKnown || r.shadow.cards != flat {
		if err := r.emit(CmdCards, cardsCommand(flat)); err != nil {
			return err
		}
		r.shadow.cards, r.shadow.cardsKnown = flat, true
	}

	locked := d.Locked()
	if !r.shadow.lockKnown || r.shadow.locked != locked {
		cmd := lockCommand(locked)
		if err := r.emit(cmd, cmd); err != nil {
			return err
		}
		r.shadow.locked, r.shadow.lockKnown = locked, true
	}

	if !d.AddCard {
		r.shadow.addCardAnnounced = false
		return nil
	}
	if !r.shadow.addCardAnnounced {
		if err := r.emit(CmdAddCard, CmdAddCard); err != nil {
			return err
		}
		r.shadow.addCardAnnounced = true
	}
	return nil
}

func (r *reconciler) emit(cmd, text string) error {
	if err := r.out.send(text); err != nil {
		return err
	}
	metrics.CommandsSent.WithLabelValues(cmd).Inc()
	return nil
}

func (r *reconciler) drainNotes() {
	for {
		select {
		case n := <-r.notes:
			if n.locked != nil {
				r.shadow.locked, r.shadow.lockKnown = *n.locked, true
			}
			if n.addCardCleared {
				r.shadow.addCardAnnounced = false
			}
		default:
			return
		}
	}
}
