package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartdoorlock/core/internal/models"
	pkgredis "github.com/smartdoorlock/core/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClaimer struct {
	granted  bool
	err      error
	claims   int
	releases int
}

func (c *stubClaimer) Claim(context.Context, string) (bool, error) {
	c.claims++
	return c.granted, c.err
}

func (c *stubClaimer) Release(context.Context, string) error {
	c.releases++
	return nil
}

func pairingFixture(t *testing.T, claimer PairingClaimer) (*fixture, *pairingGate) {
	t.Helper()
	f := newFixture(t, func(d *models.DeviceModel) { d.Status = models.DeviceStatusPairing })
	gate := &pairingGate{store: f.store, claimer: claimer, clock: f.clock, logger: zap.NewNop()}
	return f, gate
}

func TestRedisClaimer(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := pkgredis.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	c := NewRedisClaimer(rc)
	ctx := context.Background()

	ok, err := c.Claim(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("doorlock:pairing:"+testToken))

	ok, err = c.Claim(ctx, testToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Release(ctx, testToken))
	ok, err = c.Claim(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPairingGateDeniedClaimWaits(t *testing.T) {
	claimer := &stubClaimer{granted: false}
	f, gate := pairingFixture(t, claimer)
	var shadow Shadow

	gate.complete(context.Background(), testToken, &shadow)

	assert.False(t, shadow.pairingIssued)
	assert.Equal(t, models.DeviceStatusPairing, f.get(t).Status)
}

func TestPairingGateClaimErrorFallsBackToStore(t *testing.T) {
	claimer := &stubClaimer{err: errors.New("redis unreachable")}
	f, gate := pairingFixture(t, claimer)
	var shadow Shadow

	gate.complete(context.Background(), testToken, &shadow)

	assert.True(t, shadow.pairingIssued)
	assert.Equal(t, models.DeviceStatusPaired, f.get(t).Status)
}

func TestPairingGateIssuesOnce(t *testing.T) {
	claimer := &stubClaimer{granted: true}
	f, gate := pairingFixture(t, claimer)
	var shadow Shadow

	gate.complete(context.Background(), testToken, &shadow)
	gate.complete(context.Background(), testToken, &shadow)

	assert.Equal(t, 1, claimer.claims)
	assert.Zero(t, claimer.releases)
	assert.Equal(t, models.DeviceStatusPaired, f.get(t).Status)
}

func TestPairingGateReleasesOnStoreFailure(t *testing.T) {
	claimer := &stubClaimer{granted: true}
	f, gate := pairingFixture(t, claimer)
	var shadow Shadow

	gate.complete(context.Background(), "missing", &shadow)

	assert.False(t, shadow.pairingIssued)
	assert.Equal(t, 1, claimer.releases)
	assert.Equal(t, models.DeviceStatusPairing, f.get(t).Status)
}
