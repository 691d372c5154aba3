package stage

import (
	"context"

	"aerial/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Run) error
	Execute(context.Context, *queue.Run) error
	HealthCheck(context.Context) Health
}
