package bus

type EventId uint8

const (
	PointEvent EventId = iota
	ClassificationEvent
	ThresholdEvent
	RejectionEvent
	ResetEvent
)

func (id EventId) String() string {
	switch id {
	case PointEvent:
		return "point"
	case ClassificationEvent:
		return "classification"
	case ThresholdEvent:
		return "threshold"
	case RejectionEvent:
		return "rejection"
	case ResetEvent:
		return "reset"
	default:
		return "unknown"
	}
}
