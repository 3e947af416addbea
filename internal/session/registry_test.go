package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/clock/clocktest"
)

func TestRegistryGoDeliversResult(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	got := make(chan error, 1)

	r.Go(context.Background(), func(context.Context) error { return boom }, func(err error) { got <- err })
	r.Wait()

	require.ErrorIs(t, <-got, boom)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCancelAllDiscardsLateResult(t *testing.T) {
	r := NewRegistry()
	release := make(chan struct{})
	got := make(chan error, 1)

	r.Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	}, func(err error) { got <- err })
	assert.Equal(t, 1, r.Len())

	r.CancelAll()
	close(release)
	r.Wait()

	err := <-got
	assert.True(t, IsCanceled(err))
}

func TestRegistryAfterCanceledNeverFires(t *testing.T) {
	clock := clocktest.NewFakeClock(time.Unix(0, 0))
	r := NewRegistry()
	fired := false

	r.After(clock, time.Second, func() { fired = true })
	r.CancelAll()
	clock.Advance(2 * time.Second)

	assert.False(t, fired)
	assert.Equal(t, 0, clock.Pending())
}

func TestRegistryAfterFires(t *testing.T) {
	clock := clocktest.NewFakeClock(time.Unix(0, 0))
	r := NewRegistry()
	fired := 0

	h := r.After(clock, time.Second, func() { fired++ })
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, fired)
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.False(t, h.Canceled())
	assert.Equal(t, 0, r.Len())
}

func TestHandleCancelOnlyAffectsItself(t *testing.T) {
	clock := clocktest.NewFakeClock(time.Unix(0, 0))
	r := NewRegistry()
	var a, b bool

	ha := r.After(clock, time.Second, func() { a = true })
	r.After(clock, time.Second, func() { b = true })
	ha.Cancel()
	clock.Advance(time.Second)

	assert.False(t, a)
	assert.True(t, b)
}
