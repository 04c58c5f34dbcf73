package queue

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher sends domain tasks to asynq.
type Publisher struct {
	Client Enqueuer
	Queue  string
}

// PublishOrderPlaced enqueues the confirmation task. A task already queued for
// the same order counts as success.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, payload OrderPlaced) error {
	if p == nil || p.Client == nil {
		return errors.New("queue: publisher not configured")
	}
	task, err := NewOrderPlacedTask(payload)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if _, err := p.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	QueueEnqueuedTotal.WithLabelValues(TypeOrderPlaced).Inc()
	return nil
}
