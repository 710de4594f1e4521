// internal/messaging/rabbit.go
package messaging

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"tenant-registry/internal/metrics"
)

const (
	RemediationQueue = "provisioning_remediation"
)

// DeadLetterQueue names the queue that receives rejected messages from queue.
func DeadLetterQueue(queue string) string {
	return queue + "_dlq"
}

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	logger  *slog.Logger

	// amqp channels are not safe for concurrent publishes
	mu sync.Mutex
}

func NewRabbitClient(url string, logger *slog.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		logger:  logger,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeclareQueue creates a durable queue that dead-letters into its DLQ.
func (r *RabbitClient) DeclareQueue(queue string) error {
	dlqName := DeadLetterQueue(queue)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		queue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.logger.Info("queues declared", "queue", queue, "dlq", dlqName)
	return nil
}

// Publish sends a persistent message to queue through the default exchange.
func (r *RabbitClient) Publish(queue string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.channel.Publish(
		"",    // default exchange
		queue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queue, err)
	}
	return nil
}

func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(queue string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(queue)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("failed to inspect queue", "queue", queue, "error", err)
		return
	}

	metrics.QueueDepth.WithLabelValues(queue).Set(float64(q.Messages))
}
