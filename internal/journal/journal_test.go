package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sliceJournal struct {
	events []Event
	err    error
}

func (s *sliceJournal) LogEvent(ctx context.Context, e Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *sliceJournal) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error) {
	return s.events, nil
}

func TestRecorderPersistsInfoAndAbove(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := &sliceJournal{}
	r := NewRecorder(zap.New(core), store)

	ctx := context.Background()
	r.Debug(ctx, "pair", "pair_poll", zap.String("tp_status", "NEW"))
	r.Info(ctx, "pair", "pair_tp_filled", zap.String("pair_id", "p1"), zap.Int("polls", 3))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "pair_poll", logs.All()[0].Message)
	assert.Equal(t, "pair", logs.All()[1].ContextMap()["kind"])

	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.Equal(t, "pair", ev.Type)
	assert.Equal(t, "info", ev.Level)
	assert.Equal(t, "pair_tp_filled", ev.Description)
	assert.Equal(t, "p1", ev.Data["pair_id"])
	assert.EqualValues(t, 3, ev.Data["polls"])
}

func TestRecorderStoreFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRecorder(zap.New(core), &sliceJournal{err: errors.New("db down")})

	r.Error(context.Background(), "twap", "twap_slice_failed")

	assert.Equal(t, 1, logs.FilterMessage("journal_write_failed").Len())
}

func TestNopRecorder(t *testing.T) {
	r := Nop()
	r.Info(context.Background(), "order", "market_order_placed")
	assert.NotNil(t, r.Logger())
}
