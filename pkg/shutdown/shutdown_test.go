package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_RunsInReverseOrder(t *testing.T) {
	h := New(nil, time.Second)

	var order []string
	h.Register(func(context.Context) error { order = append(order, "redis"); return nil })
	h.RegisterNamed("nats", func(context.Context) error { order = append(order, "nats"); return nil })
	h.Register(func(context.Context) error { order = append(order, "http"); return nil })

	assert.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "nats", "redis"}, order)
}

func TestShutdown_JoinsErrors(t *testing.T) {
	h := New(nil, time.Second)
	errA := errors.New("a")
	errB := errors.New("b")
	h.Register(func(context.Context) error { return errA })
	h.RegisterNamed("b", func(context.Context) error { return errB })

	err := h.Shutdown()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestShutdown_RunsOnce(t *testing.T) {
	h := New(nil, time.Second)
	calls := 0
	h.Register(func(context.Context) error { calls++; return nil })

	assert.NoError(t, h.Shutdown())
	assert.NoError(t, h.Shutdown())
	assert.Equal(t, 1, calls)
}

func TestWait_ReturnsAfterCancel(t *testing.T) {
	h := New(nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := false
	h.Register(func(context.Context) error { done = true; return nil })

	cancel()
	assert.NoError(t, h.Wait(ctx))
	assert.True(t, done)
}
