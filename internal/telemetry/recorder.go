// Package telemetry records external API attempts without ever failing the
// caller.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/store"
)

// Recorder is a fire-and-forget sink for API attempt events.
type Recorder interface {
	Record(ctx context.Context, ev model.APIEvent)
}

// Nop discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, model.APIEvent) {}

const defaultWriteTimeout = 5 * time.Second

// StoreRecorder persists events to a store. Each write runs on a context
// detached from the caller's cancellation, bounded by its own timeout, and
// any error or panic is logged and dropped.
type StoreRecorder struct {
	store   store.Store
	timeout time.Duration
}

// NewStoreRecorder creates a StoreRecorder. timeout <= 0 selects 5s.
func NewStoreRecorder(s store.Store, timeout time.Duration) *StoreRecorder {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &StoreRecorder{store: s, timeout: timeout}
}

// Record implements Recorder.
func (r *StoreRecorder) Record(ctx context.Context, ev model.APIEvent) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("telemetry: event record panicked",
				zap.String("api_name", ev.APIName),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	if r == nil || r.store == nil {
		return
	}

	ev.Detail = model.TruncateDetail(ev.Detail)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.RecordEvent(wctx, ev); err != nil {
		zap.L().Warn("telemetry: event record failed",
			zap.String("api_name", ev.APIName),
			zap.String("event_type", string(ev.EventType)),
			zap.Error(err),
		)
	}
}

// Safe wraps rec so a panic inside Record is logged and dropped. A nil rec
// yields Nop.
func Safe(rec Recorder) Recorder {
	switch r := rec.(type) {
	case nil:
		return Nop{}
	case Nop, *StoreRecorder, safeRecorder:
		return r
	}
	return safeRecorder{rec: rec}
}

type safeRecorder struct {
	rec Recorder
}

func (s safeRecorder) Record(ctx context.Context, ev model.APIEvent) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Warn("telemetry: event record panicked",
				zap.String("api_name", ev.APIName),
				zap.String("event_type", string(ev.EventType)),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()
	s.rec.Record(ctx, ev)
}
