package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	var calls []int
	f.OnSleep = func(n int) { calls = append(calls, n) }

	assert.NoError(t, f.Sleep(context.Background(), 2*time.Second))
	assert.NoError(t, f.Sleep(context.Background(), 3*time.Second))

	assert.Equal(t, start.Add(5*time.Second), f.Now())
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, f.Sleeps())
	assert.Equal(t, []int{1, 2}, calls)
}

func TestFakeSleepCanceled(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	assert.Empty(t, f.Sleeps())
}

func TestRealSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Real{}.Sleep(ctx, time.Hour), context.Canceled)
}
