package journal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event represents a journaled event.
type Event struct {
	Time        time.Time
	Type        string // e.g., "order", "pair", "twap", "grid"
	Level       string
	Description string
	Data        map[string]any
}

// Journaler interface for journaling events.
type Journaler interface {
	LogEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error)
}

// Recorder is the structured event sink handed to every component. Each event becomes one
// zap record with the event name as message and, when a Journaler is attached, one
// persisted Event.
type Recorder struct {
	logger *zap.Logger
	store  Journaler
	now    func() time.Time
}

func NewRecorder(logger *zap.Logger, store Journaler) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger, store: store, now: time.Now}
}

// Nop discards everything.
func Nop() *Recorder {
	return NewRecorder(zap.NewNop(), nil)
}

func (r *Recorder) Logger() *zap.Logger {
	return r.logger
}

func (r *Recorder) Debug(ctx context.Context, kind, event string, fields ...zap.Field) {
	r.record(ctx, zapcore.DebugLevel, kind, event, fields)
}

func (r *Recorder) Info(ctx context.Context, kind, event string, fields ...zap.Field) {
	r.record(ctx, zapcore.InfoLevel, kind, event, fields)
}

func (r *Recorder) Warn(ctx context.Context, kind, event string, fields ...zap.Field) {
	r.record(ctx, zapcore.WarnLevel, kind, event, fields)
}

func (r *Recorder) Error(ctx context.Context, kind, event string, fields ...zap.Field) {
	r.record(ctx, zapcore.ErrorLevel, kind, event, fields)
}

func (r *Recorder) record(ctx context.Context, level zapcore.Level, kind, event string, fields []zap.Field) {
	if ce := r.logger.Check(level, event); ce != nil {
		ce.Write(append(fields, zap.String("kind", kind))...)
	}

	// Debug records are poll noise; only the log file keeps them.
	if r.store == nil || level < zapcore.InfoLevel {
		return
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	ev := Event{
		Time:        r.now().UTC(),
		Type:        kind,
		Level:       level.String(),
		Description: event,
		Data:        enc.Fields,
	}
	if err := r.store.LogEvent(ctx, ev); err != nil {
		r.logger.Warn("journal_write_failed", zap.String("kind", kind), zap.String("description", event), zap.Error(err))
	}
}
