package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type gatedSender struct {
	release chan struct{}

	mu        sync.Mutex
	delivered []Message
	deadlines []bool
}

func newGatedSender() *gatedSender {
	return &gatedSender{release: make(chan struct{})}
}

func (g *gatedSender) Send(ctx context.Context, msg Message) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	_, hasDeadline := ctx.Deadline()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.delivered = append(g.delivered, msg)
	g.deadlines = append(g.deadlines, hasDeadline)
	return nil
}

func (g *gatedSender) messages() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Message(nil), g.delivered...)
}

func TestDispatcherSendDoesNotWaitForDelivery(t *testing.T) {
	sender := newGatedSender()
	d := NewDispatcher(sender, DispatcherConfig{Workers: 1, QueueSize: 4, Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Send(ctx, Message{To: "ExponentPushToken[a]", Route: "dashboard"}))
	}
	require.Less(t, time.Since(start), time.Second)

	// Delivery outlives the caller's context.
	cancel()
	require.Empty(t, sender.messages())

	close(sender.release)
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, d.Close(closeCtx))

	require.Len(t, sender.messages(), 3)
	for _, hasDeadline := range sender.deadlines {
		require.True(t, hasDeadline)
	}
}

func TestDispatcherRejectsWhenFullOrClosed(t *testing.T) {
	sender := newGatedSender()
	d := NewDispatcher(sender, DispatcherConfig{Workers: 1, QueueSize: 1, Timeout: time.Minute})

	require.ErrorIs(t, d.Send(context.Background(), Message{}), ErrNoRecipient)

	// One message is held by the worker and one fills the queue.
	require.NoError(t, d.Send(context.Background(), Message{To: "a"}))
	require.Eventually(t, func() bool {
		return d.Send(context.Background(), Message{To: "b"}) == nil
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, d.Send(context.Background(), Message{To: "c"}), ErrQueueFull)

	close(sender.release)
	require.NoError(t, d.Close(context.Background()))
	require.ErrorIs(t, d.Send(context.Background(), Message{To: "d"}), ErrDispatcherClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherTimesOutSlowDeliveries(t *testing.T) {
	sender := newGatedSender()
	d := NewDispatcher(sender, DispatcherConfig{Workers: 2, Timeout: 20 * time.Millisecond})

	require.NoError(t, d.Send(context.Background(), Message{To: "a"}))
	require.NoError(t, d.Send(context.Background(), Message{To: "b"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	require.Empty(t, sender.messages())
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	sender := newGatedSender()
	d := NewDispatcher(sender, DispatcherConfig{Workers: 1, Timeout: time.Minute})
	require.NoError(t, d.Send(context.Background(), Message{To: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(sender.release)
	require.NoError(t, d.Close(context.Background()))
	require.Len(t, sender.messages(), 1)
}
