package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/logger"
)

// DefaultChannel is the Redis channel used to fan feed events out to other instances.
const DefaultChannel = "registrar:feed"

const publishTimeout = 2 * time.Second

type envelope struct {
	Origin string          `json:"origin"`
	Path   Path            `json:"path"`
	Op     Op              `json:"op"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     time.Time       `json:"at"`
}

// RedisBridge mirrors local feed events to Redis and replays events published by
// other instances into the local feed.
type RedisBridge struct {
	client  *redis.Client
	feed    *Feed
	channel string
	origin  string
	log     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisBridge constructs a bridge for feed on channel.
func NewRedisBridge(client *redis.Client, feed *Feed, channel string) (*RedisBridge, error) {
	if client == nil || feed == nil {
		return nil, errors.New("realtime: redis bridge requires a client and a feed")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		feed:    feed,
		channel: channel,
		origin:  uuid.NewString(),
		log:     logger.WithModule("realtime.redis"),
	}, nil
}

// Start subscribes to the channel and begins relaying in both directions. It returns
// once the Redis subscription is confirmed.
func (b *RedisBridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return errors.New("realtime: redis bridge already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	pubsub := b.client.Subscribe(runCtx, b.channel)
	if _, err := pubsub.Receive(runCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return err
	}

	dispose := b.feed.Subscribe("", b.forward)
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		defer dispose()
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.relay(msg.Payload)
			}
		}
	}()

	b.log.Info("redis feed bridge started", zap.String("channel", b.channel))
	return nil
}

// Stop tears down the subscription and waits for the relay loop to exit.
func (b *RedisBridge) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *RedisBridge) forward(event Event) {
	if event.Origin != "" {
		return
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		b.log.Warn("encode feed event", zap.String("path", string(event.Path)), zap.Error(err))
		return
	}
	payload, err := json.Marshal(envelope{
		Origin: b.origin,
		Path:   event.Path,
		Op:     event.Op,
		Data:   data,
		At:     event.At,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("publish feed event", zap.String("path", string(event.Path)), zap.Error(err))
	}
}

func (b *RedisBridge) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Debug("discarding malformed feed payload", zap.Error(err))
		return
	}
	if env.Origin == "" || env.Origin == b.origin {
		return
	}

	event := Event{Path: env.Path, Op: env.Op, At: env.At, Origin: env.Origin}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		event.Data = env.Data
	}
	b.feed.Publish(event)
}
