// Package twap splits a quantity into equal slices submitted at a fixed interval.
package twap

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const journalKind = "twap"

type Plan struct {
	TotalQuantity decimal.Decimal
	SliceCount    int
	Interval      time.Duration
	SliceQuantity decimal.Decimal
	Precision     int32
}

// Residual is what rounding left out: TotalQuantity - SliceQuantity*SliceCount. It may be
// negative when the slice was rounded up.
func (p Plan) Residual() decimal.Decimal {
	return p.TotalQuantity.Sub(p.SliceQuantity.Mul(decimal.NewFromInt(int64(p.SliceCount))))
}

// Schedule rounds each slice once to precision decimal places. The residual is not
// redistributed.
func Schedule(total decimal.Decimal, sliceCount int, duration time.Duration, precision int32) (Plan, error) {
	if sliceCount < 1 {
		return Plan{}, order.InvalidArgument("slice count must be >= 1, got %d", sliceCount)
	}
	if !total.IsPositive() {
		return Plan{}, order.InvalidArgument("total quantity must be positive, got %s", total)
	}
	if duration < 0 {
		return Plan{}, order.InvalidArgument("duration cannot be negative, got %s", duration)
	}
	if precision < 0 {
		return Plan{}, order.InvalidArgument("precision cannot be negative, got %d", precision)
	}

	slice := total.Div(decimal.NewFromInt(int64(sliceCount))).Round(precision)
	if !slice.IsPositive() {
		return Plan{}, order.InvalidArgument("slice quantity of %s / %d rounds to zero at %d decimals", total, sliceCount, precision)
	}
	return Plan{
		TotalQuantity: total,
		SliceCount:    sliceCount,
		Interval:      duration / time.Duration(sliceCount),
		SliceQuantity: slice,
		Precision:     precision,
	}, nil
}

// SubmitFunc places slice index (zero based) of qty.
type SubmitFunc func(ctx context.Context, index int, qty decimal.Decimal) (order.Order, error)

// PartialExecutionError reports the slices that went out before the schedule stopped.
// Submitted slices are never rolled back.
type PartialExecutionError struct {
	Results []order.Order
	Failed  int
	Err     error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("twap stopped at slice %d after %d submitted: %v", e.Failed+1, len(e.Results), e.Err)
}

func (e *PartialExecutionError) Unwrap() error {
	return e.Err
}

type Scheduler struct {
	clock clock.Clock
	rec   *journal.Recorder
}

func NewScheduler(clk clock.Clock, rec *journal.Recorder) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if rec == nil {
		rec = journal.Nop()
	}
	return &Scheduler{clock: clk, rec: rec}
}

// Execute submits every slice of plan in order, suspending plan.Interval between slices.
func (s *Scheduler) Execute(ctx context.Context, plan Plan, submit SubmitFunc) ([]order.Order, error) {
	if plan.SliceCount < 1 || !plan.SliceQuantity.IsPositive() {
		return nil, order.InvalidArgument("empty twap plan")
	}

	s.rec.Info(ctx, journalKind, "twap_start",
		zap.String("total", plan.TotalQuantity.String()),
		zap.String("slice_qty", plan.SliceQuantity.String()),
		zap.Int("slices", plan.SliceCount),
		zap.Duration("interval", plan.Interval),
		zap.String("residual", plan.Residual().String()))

	results := make([]order.Order, 0, plan.SliceCount)
	for i := 0; i < plan.SliceCount; i++ {
		if i > 0 {
			if err := s.wait(ctx, plan.Interval); err != nil {
				return results, s.fail(ctx, results, i, err)
			}
		}

		o, err := submit(ctx, i, plan.SliceQuantity)
		if err != nil {
			return results, s.fail(ctx, results, i, err)
		}
		results = append(results, o)
		s.rec.Info(ctx, journalKind, "twap_slice_fired",
			zap.Int("slice", i+1),
			zap.Int("of", plan.SliceCount),
			zap.String("order_id", o.ID),
			zap.String("qty", plan.SliceQuantity.String()),
			zap.String("status", string(o.Status)))
	}

	s.rec.Info(ctx, journalKind, "twap_complete", zap.Int("slices", len(results)))
	return results, nil
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return s.clock.Sleep(ctx, d)
}

func (s *Scheduler) fail(ctx context.Context, results []order.Order, index int, err error) error {
	s.rec.Error(ctx, journalKind, "twap_slice_failed",
		zap.Int("slice", index+1),
		zap.Int("submitted", len(results)),
		zap.Error(err))
	return &PartialExecutionError{Results: results, Failed: index, Err: err}
}
