package record

import (
	"fmt"

	"github.com/peter-kozarec/vigil/pkg/common"
)

const pointReaderComponentName = "datasource.record.reader"

// PointReader iterates a packed BinaryPoint file as a restartable Source.
type PointReader struct {
	source *Source[BinaryPoint]
	idx    int64
}

func NewPointReader(source *Source[BinaryPoint]) *PointReader {
	return &PointReader{
		source: source,
	}
}

func (r *PointReader) GetNext() (common.DataPoint, error) {
	var point common.DataPoint
	var binPoint BinaryPoint

	if err := r.source.Read(r.idx, &binPoint); err != nil {
		return point, err
	}
	idx := r.idx
	r.idx++

	point, err := binPoint.ToDataPoint(pointReaderComponentName)
	if err != nil {
		return point, fmt.Errorf("bad value at entry %d: %w", idx, err)
	}
	return point, nil
}

func (r *PointReader) Reset() error {
	r.idx = 0
	return nil
}
