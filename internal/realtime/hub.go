package realtime

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/philsca/registrar/pkg/logger"
	"github.com/philsca/registrar/pkg/metrics"
)

const defaultSendBuffer = 64

// Message is the JSON frame written to dashboard sockets.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins accepts websocket upgrades from the given origins in addition
// to same-host and loopback origins. Entries may be full URLs or bare hosts.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		for _, origin := range origins {
			if host := originHost(origin); host != "" {
				h.origins[host] = struct{}{}
			}
		}
	}
}

// WithSendBuffer sets how many frames may queue for one socket before it is
// dropped as too slow.
func WithSendBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.sendBuffer = size
		}
	}
}

// Hub tracks dashboard sockets by stream and fans messages out to them.
type Hub struct {
	mu         sync.RWMutex
	streams    map[string]map[*client]struct{}
	origins    map[string]struct{}
	sendBuffer int
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		streams:    make(map[string]map[*client]struct{}),
		origins:    make(map[string]struct{}),
		sendBuffer: defaultSendBuffer,
		log:        logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve upgrades the request and blocks until the socket closes. allowed restricts
// the streams the socket may join; nil permits every stream.
func (h *Hub) Serve(adminID string, streams []string, allowed map[string]struct{}, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:     h,
		socket:  socket,
		adminID: adminID,
		allowed: allowed,
		joined:  make(map[string]struct{}),
		send:    make(chan Message, h.sendBuffer),
	}
	metrics.RealtimeConnections.Inc()
	h.join(c, streams)

	go c.writeLoop()
	c.readLoop()
}

// BroadcastStream queues message for every socket on stream.
func (h *Hub) BroadcastStream(stream string, message Message) {
	h.broadcast(stream, message, func(*client) bool { return true })
}

// BroadcastToUser queues message for the sockets on stream owned by adminID.
func (h *Hub) BroadcastToUser(stream, adminID string, message Message) {
	if adminID == "" {
		return
	}
	h.broadcast(stream, message, func(c *client) bool { return c.adminID == adminID })
}

func (h *Hub) broadcast(stream string, message Message, match func(*client) bool) {
	stream = normalizeStream(stream)
	if stream == "" {
		return
	}
	message.Stream = stream

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.streams[stream] {
		if match(c) {
			h.deliverLocked(c, message)
		}
	}
}

// Subscribers returns the number of sockets on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[normalizeStream(stream)])
}

// join adds c to streams it is allowed on and returns the streams it is now in.
func (h *Hub) join(c *client, streams []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		if !c.permits(stream) {
			h.log.Debug("ignoring unauthorized stream", zap.String("stream", stream), zap.String("admin_id", c.adminID))
			continue
		}
		members := h.streams[stream]
		if members == nil {
			members = make(map[*client]struct{})
			h.streams[stream] = members
		}
		members[c] = struct{}{}
		c.joined[stream] = struct{}{}
	}
	return c.joinedLocked()
}

// leave removes c from streams and returns the streams it is still in.
func (h *Hub) leave(c *client, streams []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.leaveLocked(c, stream)
	}
	return c.joinedLocked()
}

func (h *Hub) leaveLocked(c *client, stream string) {
	delete(c.joined, stream)
	if members := h.streams[stream]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.streams, stream)
		}
	}
}

// drop removes c from every stream and closes its send queue.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range c.joined {
		h.leaveLocked(c, stream)
	}
	if !c.closed {
		c.closed = true
		close(c.send)
		metrics.RealtimeConnections.Dec()
	}
}

// deliverLocked queues message without blocking. A full queue closes the socket.
// Callers hold h.mu.
func (h *Hub) deliverLocked(c *client, message Message) {
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		h.log.Warn("dropping slow client", zap.String("admin_id", c.adminID))
		go c.close()
	}
}

func (h *Hub) reply(c *client, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(c, message)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host := originHost(origin)
	if host == "" {
		return false
	}
	if host == originHost(r.Host) || isLoopback(host) {
		return true
	}
	_, ok := h.origins[host]
	return ok
}

// originHost returns the lower-cased host of an origin URL or host[:port] value.
func originHost(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return strings.ToLower(parsed.Hostname())
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(value)
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return host == "localhost"
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

// ParseStreams splits comma separated stream lists and returns the distinct
// normalised names in first-seen order.
func ParseStreams(values ...string) []string {
	var streams []string
	for _, value := range values {
		streams = append(streams, strings.Split(value, ",")...)
	}
	return uniqueStreams(streams)
}

func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	result := make([]string, 0, len(streams))
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, dup := seen[stream]; dup {
			continue
		}
		seen[stream] = struct{}{}
		result = append(result, stream)
	}
	return result
}
