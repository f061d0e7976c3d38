package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/peter-kozarec/vigil/pkg/common"
)

var ErrEventCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data interface{}
}

// Router dispatches pipeline events to their handlers on a single
// goroutine, so handlers never need locking against each other.
type Router struct {
	events chan event

	OnPoint          PointEventHandler
	OnClassification ClassificationEventHandler
	OnThreshold      ThresholdEventHandler
	OnRejection      RejectionEventHandler
	OnReset          ResetEventHandler

	startTime     time.Time
	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(eventCapacity int) *Router {
	return &Router{
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data interface{}) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return ErrEventCapacityReached
	}
}

// Exec dispatches posted events until the context is cancelled. The
// returned channel yields the terminating error exactly once.
func (r *Router) Exec(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	r.resetStatistics()

	go func() {
		defer r.stopClock()

		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatch(ctx, ev)
			}
		}
	}()

	return done
}

// ExecLoop behaves like Exec but invokes doOnce whenever no event is
// pending, which makes doOnce the pipeline's pacing callback. A doOnce
// error drains buffered events and terminates the loop.
func (r *Router) ExecLoop(ctx context.Context, doOnce func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	r.resetStatistics()

	go func() {
		defer r.stopClock()

		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatch(ctx, ev)
			default:
				if err := doOnce(ctx); err != nil {
					r.drain(ctx)
					done <- err
					return
				}
			}
		}
	}()

	return done
}

func (r *Router) PrintStatistics() {
	runTime := time.Duration(r.runTime.Load())
	slog.Info("router statistics",
		"run_time", runTime,
		"post_count", r.postCount.Load(),
		"post_fails", r.postFails.Load(),
		"dispatch_count", r.dispatchCount.Load(),
		"dispatch_fails", r.dispatchFails.Load(),
		"throughput", float64(r.postCount.Load())/runTime.Seconds())
}

func (r *Router) resetStatistics() {
	r.startTime = time.Now()
	r.runTime.Store(0)
	r.postCount.Store(0)
	r.postFails.Store(0)
	r.dispatchCount.Store(0)
	r.dispatchFails.Store(0)
}

func (r *Router) stopClock() {
	r.runTime.Store(int64(time.Since(r.startTime)))
}

func (r *Router) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.dispatch(ctx, ev)
		default:
			return
		}
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)
	if err := r.route(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		slog.Warn("dispatch failed", "error", err, "event", ev.id)
	}
}

func (r *Router) route(ctx context.Context, ev event) error {
	switch ev.id {
	case PointEvent:
		point, ok := ev.data.(common.DataPoint)
		if !ok {
			return errors.New("invalid type assertion for point event")
		}
		if r.OnPoint != nil {
			r.OnPoint(ctx, point)
		} else {
			slog.Debug("point handler is nil")
		}
	case ClassificationEvent:
		classification, ok := ev.data.(common.Classification)
		if !ok {
			return errors.New("invalid type assertion for classification event")
		}
		if r.OnClassification != nil {
			r.OnClassification(ctx, classification)
		} else {
			slog.Debug("classification handler is nil")
		}
	case ThresholdEvent:
		update, ok := ev.data.(common.ThresholdUpdate)
		if !ok {
			return errors.New("invalid type assertion for threshold event")
		}
		if r.OnThreshold != nil {
			r.OnThreshold(ctx, update)
		} else {
			slog.Debug("threshold handler is nil")
		}
	case RejectionEvent:
		rejection, ok := ev.data.(common.Rejection)
		if !ok {
			return errors.New("invalid type assertion for rejection event")
		}
		if r.OnRejection != nil {
			r.OnRejection(ctx, rejection)
		} else {
			slog.Debug("rejection handler is nil")
		}
	case ResetEvent:
		reset, ok := ev.data.(common.StreamReset)
		if !ok {
			return errors.New("invalid type assertion for reset event")
		}
		if r.OnReset != nil {
			r.OnReset(ctx, reset)
		} else {
			slog.Debug("reset handler is nil")
		}
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
	return nil
}
