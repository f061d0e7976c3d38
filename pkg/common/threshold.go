package common

import (
	"time"

	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

// ThresholdUpdate changes the z-score magnitude beyond which points are
// flagged. It applies to the next evaluated point; earlier classifications
// are never revisited.
type ThresholdUpdate struct {
	Value fixed.Point `json:"value"`

	Source    string    `json:"src,omitempty"`
	TimeStamp time.Time `json:"ts"`
}
