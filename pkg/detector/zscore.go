package detector

import (
	"errors"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/utility"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const (
	zScoreComponentName = "detector.zscore"

	// DefaultWindowSize matches the trailing window of the reference feed.
	DefaultWindowSize = 50

	// minHistory is the smallest prior history that yields a defined
	// standard deviation. Below it every point is normal.
	minHistory = 2
)

// DefaultThreshold is the |z| magnitude beyond which a point is anomalous.
var DefaultThreshold = fixed.FromInt64(23, 1) // 2.3

// ErrInvalidThreshold is returned for zero or negative thresholds, which
// would flag everything or nothing.
var ErrInvalidThreshold = errors.New("threshold must be positive")

// Config sets up a ZScore detector. WindowSize 0 keeps the entire history;
// a positive WindowSize keeps only the trailing N points. A Threshold
// that is not strictly positive falls back to DefaultThreshold, same
// rule SetThreshold enforces.
type Config struct {
	WindowSize int
	Threshold  fixed.Point
}

// ZScore classifies incoming points against the mean and population
// standard deviation of the history seen so far. Statistics are always
// computed over the prior history only, so a point never influences its
// own classification. Values must be within ±fixed.MaxAbsValue, which
// the ingestion edge (fixed.ParseFloat64) guarantees; in-range values
// keep every intermediate statistic representable. Not safe for
// concurrent use; the bus router runs all handlers on one goroutine.
type ZScore struct {
	ring      *fixed.RingBuffer
	all       []fixed.Point
	threshold fixed.Point
}

func NewZScore(cfg Config) *ZScore {
	d := &ZScore{
		threshold: cfg.Threshold,
	}
	if !d.threshold.Gt(fixed.Zero) {
		d.threshold = DefaultThreshold
	}
	if cfg.WindowSize > 0 {
		d.ring = fixed.NewRingBuffer(cfg.WindowSize)
	}
	return d
}

// Classify produces the verdict for the point and then appends its value
// to the window, evicting the oldest entry once a bounded window is full.
func (d *ZScore) Classify(point common.DataPoint) common.Classification {
	mean, stdDev, prior := d.snapshot()

	c := common.Classification{
		Point:       point,
		ZScore:      fixed.Zero,
		Mean:        mean,
		StdDev:      stdDev,
		PriorCount:  prior,
		Source:      zScoreComponentName,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     point.TraceID,
		TimeStamp:   point.TimeStamp,
	}

	switch {
	case prior < minHistory:
		// Insufficient history, normal by definition.
	case stdDev.IsZero():
		// All prior values identical. Any deviation from them is
		// anomalous; the z-score itself is undefined and reported as 0.
		c.Anomalous = !point.Value.Eq(mean)
	default:
		c.ZScore = point.Value.Sub(mean).Div(stdDev)
		c.Anomalous = c.ZScore.Abs().Gt(d.threshold)
	}

	d.append(point.Value)
	return c
}

// SetThreshold replaces the threshold for future classifications. Invalid
// values are rejected and the previous threshold stays in effect.
func (d *ZScore) SetThreshold(threshold fixed.Point) error {
	if !threshold.Gt(fixed.Zero) {
		return ErrInvalidThreshold
	}
	d.threshold = threshold
	return nil
}

func (d *ZScore) Threshold() fixed.Point {
	return d.threshold
}

// Stats reports the mean, population standard deviation and size of the
// current window.
func (d *ZScore) Stats() (mean, stdDev fixed.Point, size int) {
	return d.snapshot()
}

func (d *ZScore) Size() int {
	_, _, size := d.snapshot()
	return size
}

func (d *ZScore) snapshot() (mean, stdDev fixed.Point, size int) {
	if d.ring != nil {
		return d.ring.Mean(), d.ring.StdDev(), d.ring.Size()
	}
	mean = fixed.Mean(d.all)
	return mean, fixed.StdDev(d.all, mean), len(d.all)
}

func (d *ZScore) append(value fixed.Point) {
	if d.ring != nil {
		d.ring.Add(value)
		return
	}
	d.all = append(d.all, value)
}
