package twap

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSchedule(t *testing.T) {
	plan, err := Schedule(dec("0.01"), 5, 60*time.Second, 8)
	require.NoError(t, err)
	assert.Equal(t, "0.002", plan.SliceQuantity.String())
	assert.Equal(t, 12*time.Second, plan.Interval)
	assert.True(t, plan.Residual().IsZero())
}

func TestScheduleResidual(t *testing.T) {
	plan, err := Schedule(dec("1"), 3, 90*time.Second, 4)
	require.NoError(t, err)
	assert.Equal(t, "0.3333", plan.SliceQuantity.String())
	assert.Equal(t, "0.0001", plan.Residual().String())
	assert.Equal(t, 30*time.Second, plan.Interval)

	plan, err = Schedule(dec("2"), 3, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "0.67", plan.SliceQuantity.String())
	assert.Equal(t, "-0.01", plan.Residual().String())
	assert.Zero(t, plan.Interval)
}

func TestScheduleRejects(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		count    int
		duration time.Duration
		prec     int32
	}{
		{"zero slices", "1", 0, time.Minute, 8},
		{"zero total", "0", 5, time.Minute, 8},
		{"negative total", "-1", 5, time.Minute, 8},
		{"negative duration", "1", 5, -time.Second, 8},
		{"negative precision", "1", 5, time.Minute, -1},
		{"rounds to zero", "0.001", 5, time.Minute, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schedule(dec(tt.total), tt.count, tt.duration, tt.prec)
			assert.ErrorIs(t, err, order.ErrInvalidArgument)
		})
	}
}

func TestExecute(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	s := NewScheduler(clk, nil)
	plan, err := Schedule(dec("0.01"), 5, 60*time.Second, 8)
	require.NoError(t, err)

	var got []int
	results, err := s.Execute(context.Background(), plan, func(ctx context.Context, i int, qty decimal.Decimal) (order.Order, error) {
		got = append(got, i)
		assert.Equal(t, "0.002", qty.String())
		return order.Order{ID: fmt.Sprintf("o%d", i), Quantity: qty, Status: order.StatusFilled}, nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, []time.Duration{12 * time.Second, 12 * time.Second, 12 * time.Second, 12 * time.Second}, clk.Sleeps())
	assert.Equal(t, "o4", results[4].ID)
}

func TestExecuteSingleSliceDoesNotSleep(t *testing.T) {
	clk := clock.NewFake(time.Now())
	plan, err := Schedule(dec("1"), 1, time.Minute, 8)
	require.NoError(t, err)

	results, err := NewScheduler(clk, nil).Execute(context.Background(), plan, func(ctx context.Context, i int, qty decimal.Decimal) (order.Order, error) {
		return order.Order{ID: "only"}, nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Empty(t, clk.Sleeps())
}

func TestExecuteStopsOnFailure(t *testing.T) {
	clk := clock.NewFake(time.Now())
	plan, err := Schedule(dec("0.01"), 5, 60*time.Second, 8)
	require.NoError(t, err)
	boom := errors.New("insufficient balance")

	calls := 0
	results, err := NewScheduler(clk, nil).Execute(context.Background(), plan, func(ctx context.Context, i int, qty decimal.Decimal) (order.Order, error) {
		calls++
		if i == 2 {
			return order.Order{}, boom
		}
		return order.Order{ID: fmt.Sprintf("o%d", i)}, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Len(t, results, 2)

	var perr *PartialExecutionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Failed)
	assert.Len(t, perr.Results, 2)
	assert.Equal(t, "twap stopped at slice 3 after 2 submitted: insufficient balance", perr.Error())
	assert.Len(t, clk.Sleeps(), 2)
}

func TestExecuteContextCancelledBetweenSlices(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.OnSleep = func(n int) { cancel() }

	plan, err := Schedule(dec("0.01"), 5, 60*time.Second, 8)
	require.NoError(t, err)

	results, err := NewScheduler(clk, nil).Execute(ctx, plan, func(ctx context.Context, i int, qty decimal.Decimal) (order.Order, error) {
		return order.Order{ID: fmt.Sprintf("o%d", i)}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)

	var perr *PartialExecutionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Failed)
}

func TestExecuteRejectsEmptyPlan(t *testing.T) {
	_, err := NewScheduler(nil, nil).Execute(context.Background(), Plan{}, nil)
	assert.ErrorIs(t, err, order.ErrInvalidArgument)
}
