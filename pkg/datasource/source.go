package datasource

import (
	"errors"

	"github.com/peter-kozarec/vigil/pkg/common"
)

// ErrEof marks the end of a finite dataset.
var ErrEof = errors.New("EOF")

// ErrBadRow marks a single malformed dataset entry: an unparsable field,
// a non-finite value, or a value outside the representable range.
var ErrBadRow = errors.New("malformed row")

// Source is a restartable lazy sequence of DataPoints. GetNext returns
// an error wrapping ErrBadRow for a single bad entry; callers skip it
// and keep reading. Reset rewinds to the beginning so a finite dataset
// can be replayed indefinitely.
type Source interface {
	GetNext() (common.DataPoint, error)
	Reset() error
}
