package common

import (
	"time"

	"github.com/peter-kozarec/vigil/pkg/utility"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

// DataPoint is a single observation of the monitored value, in arrival order.
type DataPoint struct {
	Value fixed.Point `json:"value"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// PointFromFloat64 builds a DataPoint from a raw float, rejecting NaN and
// ±Inf with fixed.ErrNotFinite and oversized magnitudes with
// fixed.ErrOutOfRange before the value can reach a window.
func PointFromFloat64(timeStamp time.Time, value float64, source string) (DataPoint, error) {
	v, err := fixed.ParseFloat64(value)
	if err != nil {
		return DataPoint{}, err
	}

	return DataPoint{
		Value:       v,
		Source:      source,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   timeStamp,
	}, nil
}
