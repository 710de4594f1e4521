// internal/consumer/consumer.go
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"tenant-registry/internal/worker"
)

// Consumer forwards deliveries from one queue into a worker pool.
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	ConsumerTag string
	Pool        *worker.WorkerPool

	jobs   chan amqp.Delivery
	logger *slog.Logger
}

// StartConsumer opens a dedicated channel on conn and starts consuming queue
// with manual acks; prefetch bounds the unacked deliveries held by the pool.
func StartConsumer(ctx context.Context, conn *amqp.Connection, queue string, prefetch int, pool *worker.WorkerPool, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queue, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set prefetch: %w", queue, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", queue)
	msgs, err := ch.Consume(
		queue,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queue, err)
	}

	c := &Consumer{
		QueueName:   queue,
		Channel:     ch,
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		ConsumerTag: consumerTag,
		Pool:        pool,
		jobs:        make(chan amqp.Delivery),
		logger:      logger.With("queue", queue),
	}

	pool.Start(ctx, c.jobs)
	go c.consumeLoop(msgs)

	c.logger.Info("started consumer", "workers", pool.Workers(), "prefetch", prefetch)
	return c, nil
}

// consumeLoop forwards messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer func() {
		close(c.jobs)
		close(c.DoneChan)
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			select {
			case c.jobs <- msg:
			case <-c.StopChan:
				// Unacked; the broker redelivers it once the channel closes.
				return
			}

		case <-c.StopChan:
			c.logger.Info("stopping consumer")
			_ = c.Channel.Cancel(c.ConsumerTag, false)
			return
		}
	}
}

// Stop signals the consumer to stop, drains the pool and closes the channel.
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	c.Pool.Stop()
	_ = c.Channel.Close()
	c.logger.Info("stopped consumer")
}

func (c *Consumer) SetWorkerCount(n int) {
	c.Pool.SetWorkerCount(n)
}
