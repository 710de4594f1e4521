package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"tenant-registry/internal/model"
)

// Sender is the slice of RabbitClient the publisher needs.
type Sender interface {
	Publish(queue string, body []byte) error
}

// Publisher queues remediation tasks for the worker pool.
type Publisher struct {
	sender Sender
	queue  string
}

func NewPublisher(sender Sender, queue string) *Publisher {
	return &Publisher{sender: sender, queue: queue}
}

func (p *Publisher) Notify(ctx context.Context, task model.RemediationTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode remediation task: %w", err)
	}
	return p.sender.Publish(p.queue, body)
}
