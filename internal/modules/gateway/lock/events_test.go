package lock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (n *fakeNotifier) Dispatch(p push.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, p)
}

func (n *fakeNotifier) all() []push.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]push.Notification(nil), n.sent...)
}

type failingSender struct{}

func (failingSender) Send(context.Context, push.Notification) error {
	return errors.New("push backend down")
}

func TestCardAddedEnrollsAndSyncs(t *testing.T) {
	f := newFixture(t, func(d *models.DeviceModel) { d.AddCard = true })
	assert.Equal(t, []string{"CARDS ", "LOCK", "ADD_CARD"}, f.tick(t))

	f.events.handle(context.Background(), "CARD_ADDED C9")
	d := f.get(t)
	assert.Equal(t, []string{"C9"}, d.CardIDs())
	assert.False(t, d.AddCard)
	assert.Nil(t, d.Cards[0].Name)

	assert.Equal(t, []string{"CARDS C9"}, f.tick(t))
	assert.Empty(t, f.tick(t))
}

func TestCardAddedIgnoresDuplicates(t *testing.T) {
	f := newFixture(t, nil)

	f.events.handle(context.Background(), "CARD_ADDED C9")
	f.events.handle(context.Background(), "CARD_ADDED C9")

	assert.Equal(t, []string{"C9"}, f.get(t).CardIDs())
}

func TestCardAddedKeepsFirstWordOnly(t *testing.T) {
	f := newFixture(t, nil)

	f.events.handle(context.Background(), "CARD_ADDED A1 B2")
	assert.Equal(t, []string{"A1"}, f.get(t).CardIDs())
	assert.Equal(t, []string{"CARDS A1", "LOCK"}, f.tick(t))

	f.events.handle(context.Background(), "CARD_ADDED A1")
	assert.Equal(t, []string{"A1"}, f.get(t).CardIDs())
	assert.Empty(t, f.tick(t))
}

func TestDeviceReportedLockIsNotEchoed(t *testing.T) {
	f := newFixture(t, nil)
	f.tick(t)

	f.events.handle(context.Background(), "UNLOCKED")
	assert.Equal(t, models.DoorUnlocked, f.get(t).DoorStatus)
	assert.Empty(t, f.tick(t))

	f.events.handle(context.Background(), "LOCKED")
	assert.Equal(t, models.DoorLocked, f.get(t).DoorStatus)
	assert.Empty(t, f.tick(t))
}

func TestUnlockedWithNameNotifies(t *testing.T) {
	f := newFixture(t, nil)

	f.events.handle(context.Background(), "UNLOCKED Alice Smith")

	assert.Equal(t, models.DoorUnlocked, f.get(t).DoorStatus)
	sent := f.push.all()
	require.Len(t, sent, 1)
	assert.Equal(t, testToken, sent[0].Topic)
	assert.Equal(t, "Door Opened", sent[0].Title)
	assert.Equal(t, "Door opened by Alice Smith", sent[0].Body)
}

func TestUnlockedWithoutNameDoesNotNotify(t *testing.T) {
	f := newFixture(t, nil)

	f.events.handle(context.Background(), "UNLOCKED")

	assert.Empty(t, f.push.all())
}

func TestUnlockPersistsWhenPushFails(t *testing.T) {
	f := newFixture(t, nil)
	dispatcher := push.NewDispatcher(failingSender{}, zap.NewNop())
	f.events.notifier = dispatcher

	f.events.handle(context.Background(), "UNLOCKED Alice")
	dispatcher.Wait()

	assert.Equal(t, models.DoorUnlocked, f.get(t).DoorStatus)
}

func TestGetDoorLockReplies(t *testing.T) {
	f := newFixture(t, func(d *models.DeviceModel) { d.DoorStatus = models.DoorUnlocked })

	f.events.handle(context.Background(), "GET_DOOR_LOCK")

	sent := f.out.take()
	require.Len(t, sent, 1)
	var reply doorLockReply
	require.NoError(t, json.Unmarshal([]byte(sent[0]), &reply))
	assert.Equal(t, "GET_DOOR_LOCK", reply.Type)
	assert.Equal(t, models.DoorUnlocked, reply.Data)
}

func TestScanTimeoutClearsEnrollment(t *testing.T) {
	f := newFixture(t, func(d *models.DeviceModel) { d.AddCard = true })
	f.tick(t)

	f.events.handle(context.Background(), "SCAN_CARD_TIMEOUT")
	assert.False(t, f.get(t).AddCard)
	assert.Empty(t, f.tick(t))

	f.update(t, device.Fields{models.FieldAddCard: true})
	assert.Equal(t, []string{"ADD_CARD"}, f.tick(t))
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	f := newFixture(t, nil)
	before := f.get(t)

	for _, text := range []string{"", "HELLO", "CARD_ADDED", "CARD_ADDED   ", "LOCKED now", "lock"} {
		f.events.handle(context.Background(), text)
	}

	assert.Equal(t, before, f.get(t))
	assert.Empty(t, f.out.take())
}

func TestEventsForDeletedRecordAreDropped(t *testing.T) {
	f := newFixture(t, nil)
	f.events.token = "missing"

	f.events.handle(context.Background(), "LOCKED")
	f.events.handle(context.Background(), "CARD_ADDED C1")
	f.events.handle(context.Background(), "GET_DOOR_LOCK")

	assert.Empty(t, f.out.take())
	assert.Empty(t, f.get(t).Cards)
}

func TestParseFrame(t *testing.T) {
	cases := []struct {
		in   string
		want frame
	}{
		{"LOCKED", frame{name: "LOCKED"}},
		{"UNLOCKED Bob", frame{name: "UNLOCKED", arg: "Bob"}},
		{"UNLOCKED  Bob  Jr ", frame{name: "UNLOCKED", arg: "Bob  Jr"}},
		{"CARD_ADDED ", frame{name: "CARD_ADDED"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseFrame(tc.in), tc.in)
	}
}
