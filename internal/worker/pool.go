package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"tenant-registry/internal/metrics"
)

// Handler processes one message body. A returned error rejects the delivery to the DLQ.
type Handler func(ctx context.Context, body []byte) error

type WorkerPool struct {
	name    string
	handler Handler
	logger  *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	deliveries <-chan amqp.Delivery
	stops      []chan struct{}
	workers    int
	wg         sync.WaitGroup
}

func NewWorkerPool(name string, handler Handler, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		name:    name,
		handler: handler,
		logger:  logger.With("pool", name),
		workers: workerCount,
	}
}

// Start runs the configured number of workers over deliveries until Stop,
// ctx cancellation or the deliveries channel closing.
func (wp *WorkerPool) Start(ctx context.Context, deliveries <-chan amqp.Delivery) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.ctx = ctx
	wp.deliveries = deliveries
	wp.logger.Info("starting worker pool", "workers", wp.workers)
	for i := 0; i < wp.workers; i++ {
		wp.spawn()
	}
}

func (wp *WorkerPool) spawn() {
	stop := make(chan struct{})
	wp.stops = append(wp.stops, stop)
	wp.wg.Add(1)
	go wp.run(stop)
}

func (wp *WorkerPool) run(stop <-chan struct{}) {
	defer wp.wg.Done()
	metrics.WorkerActive.WithLabelValues(wp.name).Inc()
	defer metrics.WorkerActive.WithLabelValues(wp.name).Dec()

	for {
		select {
		case <-stop:
			return
		case <-wp.ctx.Done():
			return
		case msg, ok := <-wp.deliveries:
			if !ok {
				return
			}
			wp.process(msg)
		}
	}
}

func (wp *WorkerPool) process(msg amqp.Delivery) {
	if err := wp.handler(wp.ctx, msg.Body); err != nil {
		wp.logger.Error("failed to process message", "delivery_tag", msg.DeliveryTag, "error", err)
		if err := msg.Reject(false); err != nil {
			wp.logger.Error("failed to reject message", "delivery_tag", msg.DeliveryTag, "error", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		wp.logger.Error("failed to ack message", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}

// Workers returns the target concurrency level.
func (wp *WorkerPool) Workers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.workers
}

// SetWorkerCount grows or shrinks the running pool. Workers being removed
// finish their current message first.
func (wp *WorkerPool) SetWorkerCount(n int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if n <= 0 || n == wp.workers {
		return
	}
	wp.logger.Info("rescaling worker pool", "from", wp.workers, "to", n)
	wp.workers = n

	if wp.deliveries == nil {
		return
	}
	for len(wp.stops) < n {
		wp.spawn()
	}
	for len(wp.stops) > n {
		last := len(wp.stops) - 1
		close(wp.stops[last])
		wp.stops = wp.stops[:last]
	}
}

// Stop signals every worker and waits for in-flight messages to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	for _, stop := range wp.stops {
		close(stop)
	}
	wp.stops = nil
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info("worker pool stopped")
}
