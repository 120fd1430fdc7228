package lock

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"github.com/smartdoorlock/core/internal/pkg/push"
	"go.uber.org/zap"
)

// Notifier accepts notifications for background delivery. It deliberately
// reports nothing back.
type Notifier interface {
	Dispatch(n push.Notification)
}

// eventHandler applies frames from an authenticated device to its record.
type eventHandler struct {
	token        string
	store        device.Store
	notifier     Notifier
	out          commandSender
	notes        chan<- shadowNote
	storeTimeout time.Duration
	logger       *zap.Logger
}

func (e *eventHandler) handle(ctx context.Context, text string) {
	f := parseFrame(text)

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	var err error
	switch {
	case f.name == EventCardAdded && f.arg != "":
		err = e.cardAdded(ctx, f.word())
	case f.name == EventLocked && f.arg == "":
		err = e.setDoor(ctx, models.DoorLocked)
	case f.name == EventUnlocked:
		err = e.setDoor(ctx, models.DoorUnlocked)
		if f.arg != "" {
			e.notifyOpened(f.arg)
		}
	case f.name == EventGetDoorLock && f.arg == "":
		err = e.replyDoorLock(ctx)
	case f.name == EventScanCardTimeout && f.arg == "":
		err = e.scanTimeout(ctx)
	default:
		e.logger.Debug("ignoring unknown frame", zap.String("frame", text))
		return
	}
	metrics.EventsReceived.WithLabelValues(f.name).Inc()

	if errors.Is(err, device.ErrNotFound) {
		return
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("event").Inc()
		e.logger.Warn("device event dropped", zap.String("event", f.name), zap.Error(err))
	}
}

func (e *eventHandler) cardAdded(ctx context.Context, card string) error {
	if _, err := e.store.Get(ctx, e.token); err != nil {
		return err
	}
	added, err := e.store.AppendCard(ctx, e.token, models.Card{Card: card})
	if err != nil {
		return err
	}
	if !added {
		e.logger.Debug("card already enrolled", zap.String("card", card))
	}
	e.note(shadowNote{addCardCleared: true})
	return nil
}

func (e *eventHandler) setDoor(ctx context.Context, status models.DoorStatus) error {
	if _, err := e.store.Get(ctx, e.token); err != nil {
		return err
	}
	if err := e.store.Update(ctx, e.token, device.Fields{models.FieldDoorStatus: status}); err != nil {
		return err
	}
	locked := status == models.DoorLocked
	e.note(shadowNote{locked: &locked})
	return nil
}

func (e *eventHandler) scanTimeout(ctx context.Context) error {
	if _, err := e.store.Get(ctx, e.token); err != nil {
		return err
	}
	if err := e.store.Update(ctx, e.token, device.Fields{models.FieldAddCard: false}); err != nil {
		return err
	}
	e.note(shadowNote{addCardCleared: true})
	return nil
}

func (e *eventHandler) replyDoorLock(ctx context.Context) error {
	d, err := e.store.Get(ctx, e.token)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doorLockReply{Type: EventGetDoorLock, Data: d.DoorStatus})
	if err != nil {
		return err
	}
	if err := e.out.send(string(b)); err != nil {
		e.logger.Debug("door lock reply not sent", zap.Error(err))
	}
	return nil
}

func (e *eventHandler) notifyOpened(who string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Dispatch(push.Notification{
		Topic: e.token,
		Title: notifyTitle,
		Body:  notifyBodyPrefix + who,
	})
}

// note hands device-reported state to the reconcile loop. Dropped if the
// loop is far behind; the worst case is one redundant command.
func (e *eventHandler) note(n shadowNote) {
	if e.notes == nil {
		return
	}
	select {
	case e.notes <- n:
	default:
	}
}
