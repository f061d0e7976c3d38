package bus

import (
	"context"

	"github.com/peter-kozarec/vigil/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type PointEventHandler EventHandler[common.DataPoint]
type ClassificationEventHandler EventHandler[common.Classification]
type ThresholdEventHandler EventHandler[common.ThresholdUpdate]
type RejectionEventHandler EventHandler[common.Rejection]
type ResetEventHandler EventHandler[common.StreamReset]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
