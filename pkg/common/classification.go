package common

import (
	"time"

	"github.com/peter-kozarec/vigil/pkg/utility"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

// Classification is the immutable verdict for one DataPoint. Mean, StdDev
// and PriorCount describe the history the verdict was computed against,
// which never includes the point itself.
type Classification struct {
	Point      DataPoint   `json:"point"`
	ZScore     fixed.Point `json:"z_score"`
	Anomalous  bool        `json:"anomalous"`
	Mean       fixed.Point `json:"mean"`
	StdDev     fixed.Point `json:"std_dev"`
	PriorCount int         `json:"prior_count"`

	Source      string              `json:"src,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
