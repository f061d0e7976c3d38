package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const replayerComponentName = "stream.replayer"

// Replayer pulls points from a source one at a time and posts them on
// the router, waiting the configured interval between points to mimic
// a live feed. Feed is meant to run as the router's ExecLoop callback.
type Replayer struct {
	router   *bus.Router
	source   datasource.Source
	interval time.Duration
	loop     bool

	pass int
}

func NewReplayer(router *bus.Router, source datasource.Source, interval time.Duration, loop bool) *Replayer {
	return &Replayer{
		router:   router,
		source:   source,
		interval: interval,
		loop:     loop,
	}
}

// Pass reports how many times the source has wrapped around.
func (r *Replayer) Pass() int {
	return r.pass
}

// Feed emits the next point. On EOF it either rewinds the source and
// posts a reset marker, or returns datasource.ErrEof when looping is
// off. Malformed, non-finite and out-of-range entries are reported as
// rejections and skipped, the stream keeps running.
func (r *Replayer) Feed(ctx context.Context) error {
	if r.interval > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval):
		}
	}

	point, err := r.source.GetNext()
	if err != nil {
		switch {
		case errors.Is(err, datasource.ErrEof):
			if !r.loop {
				return datasource.ErrEof
			}
			return r.rewind()
		case errors.Is(err, datasource.ErrBadRow),
			errors.Is(err, fixed.ErrNotFinite),
			errors.Is(err, fixed.ErrOutOfRange):
			r.reject(err)
			return nil
		default:
			return fmt.Errorf("get next point: %w", err)
		}
	}

	if err := r.router.Post(bus.PointEvent, point); err != nil {
		slog.Warn("unable to post point event", "error", err)
	}
	return nil
}

func (r *Replayer) rewind() error {
	if err := r.source.Reset(); err != nil {
		return fmt.Errorf("reset source: %w", err)
	}
	r.pass++

	reset := common.StreamReset{
		Pass:      r.pass,
		Source:    replayerComponentName,
		TimeStamp: time.Now(),
	}
	if err := r.router.Post(bus.ResetEvent, reset); err != nil {
		slog.Warn("unable to post reset event", "error", err)
	}
	return nil
}

func (r *Replayer) reject(cause error) {
	rejection := common.Rejection{
		Reason:    cause.Error(),
		Source:    replayerComponentName,
		TimeStamp: time.Now(),
	}
	if err := r.router.Post(bus.RejectionEvent, rejection); err != nil {
		slog.Warn("unable to post rejection event", "error", err)
	}
}
