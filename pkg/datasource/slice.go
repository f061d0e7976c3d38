package datasource

import (
	"github.com/peter-kozarec/vigil/pkg/common"
)

// SliceSource replays a preloaded dataset, e.g. points pulled out of
// DuckDB in one query.
type SliceSource struct {
	points []common.DataPoint
	idx    int
}

func NewSliceSource(points []common.DataPoint) *SliceSource {
	return &SliceSource{
		points: points,
	}
}

func (s *SliceSource) GetNext() (common.DataPoint, error) {
	if s.idx >= len(s.points) {
		return common.DataPoint{}, ErrEof
	}

	point := s.points[s.idx]
	s.idx++
	return point, nil
}

func (s *SliceSource) Reset() error {
	s.idx = 0
	return nil
}

func (s *SliceSource) Len() int {
	return len(s.points)
}
