package record

import (
	"time"

	"github.com/peter-kozarec/vigil/pkg/common"
)

// BinaryPoint is the on-disk layout of one observation: nanosecond
// timestamp followed by the raw value, little-endian. cmd/dumpit packs
// CSV datasets into this format.
type BinaryPoint struct {
	TimeStamp int64
	Value     float64
}

func (b BinaryPoint) ToDataPoint(source string) (common.DataPoint, error) {
	return common.PointFromFloat64(time.Unix(0, b.TimeStamp), b.Value, source)
}
