package realtime

import (
	"sync"
	"time"

	"github.com/philsca/registrar/pkg/metrics"
)

// Op describes the kind of change carried by an Event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a change notification for a single path.
type Event struct {
	Path Path      `json:"path"`
	Op   Op        `json:"op"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`

	// Origin identifies the instance an event was relayed from. Empty for local writes.
	Origin string `json:"-"`
}

// Listener receives events for a subscribed subtree.
type Listener func(Event)

// Publisher is implemented by anything that accepts change events.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

type subscription struct {
	prefix   Path
	listener Listener
}

// Feed is an in-process change feed. Listeners subscribe to a path prefix and
// receive every event published at or below it.
type Feed struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
	now  func() time.Time
}

// NewFeed constructs an empty feed.
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[uint64]subscription),
		now:  time.Now,
	}
}

// Subscribe registers listener for prefix and returns a disposer that detaches it.
// The disposer is idempotent.
func (f *Feed) Subscribe(prefix Path, listener Listener) func() {
	if listener == nil {
		return func() {}
	}

	f.mu.Lock()
	f.next++
	id := f.next
	f.subs[id] = subscription{prefix: Join(string(prefix)), listener: listener}
	f.mu.Unlock()
	metrics.FeedSubscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			metrics.FeedSubscribers.Dec()
		})
	}
}

// Publish delivers event to every matching listener synchronously.
func (f *Feed) Publish(event Event) {
	if event.At.IsZero() {
		event.At = f.now()
	}

	f.mu.RLock()
	targets := make([]Listener, 0, len(f.subs))
	for _, sub := range f.subs {
		if event.Path.Within(sub.prefix) {
			targets = append(targets, sub.listener)
		}
	}
	f.mu.RUnlock()

	for _, listener := range targets {
		listener(event)
	}
}

// Len returns the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
