package push

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/metrics"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 10 * time.Second
)

var (
	// ErrQueueFull is returned when the dispatcher cannot accept more messages.
	ErrQueueFull = errors.New("push: dispatch queue is full")
	// ErrDispatcherClosed is returned for messages sent after Close.
	ErrDispatcherClosed = errors.New("push: dispatcher is closed")
)

// DispatcherConfig bounds background delivery.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout caps a single delivery attempt.
	Timeout time.Duration
}

// Dispatcher queues messages and delivers them on a fixed set of workers so callers
// never wait on the push endpoint. Delivery is detached from the caller's context.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	queue   chan Message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers delivery goroutines in front of sender.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if sender == nil {
		sender = Noop{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	d := &Dispatcher{
		sender:  sender,
		timeout: timeout,
		queue:   make(chan Message, size),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

// Send enqueues msg without blocking.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered or for
// ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		metrics.PushDispatches.WithLabelValues("failed").Inc()
		logger.WithModule("push").Debug("push delivery failed", zap.String("route", msg.Route), zap.Error(err))
		return
	}
	metrics.PushDispatches.WithLabelValues("sent").Inc()
}
