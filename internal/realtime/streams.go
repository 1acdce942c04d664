package realtime

// Named realtime streams exposed over the websocket hub.
const (
	StreamRequests  = "requests"
	StreamMessages  = "messages"
	StreamNews      = "news"
	StreamUsers     = "users"
	StreamDashboard = "dashboard"
	StreamHistory   = "history"
)

// Streams lists every stream a client may subscribe to.
func Streams() []string {
	return []string{StreamRequests, StreamMessages, StreamNews, StreamUsers, StreamDashboard, StreamHistory}
}

// BridgeToHub forwards feed events to hub streams based on the collection of the
// changed path. The returned function detaches the bridge.
func BridgeToHub(feed *Feed, hub *Hub) func() {
	return feed.Subscribe("", func(event Event) {
		message := Message{
			Event: string(event.Op),
			Data:  event.Data,
			Meta:  map[string]any{"path": string(event.Path), "at": event.At},
		}

		switch event.Path.Collection() {
		case CollectionRequests:
			hub.BroadcastStream(StreamRequests, message)
			hub.BroadcastStream(StreamDashboard, message)
		case CollectionUsers:
			hub.BroadcastStream(StreamUsers, message)
			hub.BroadcastStream(StreamDashboard, message)
		case CollectionMessages:
			hub.BroadcastStream(StreamMessages, message)
		case CollectionNews:
			hub.BroadcastStream(StreamNews, message)
		case CollectionAdmin:
			segments := event.Path.Segments()
			if len(segments) >= 3 && segments[2] == "history" {
				hub.BroadcastToUser(StreamHistory, segments[1], message)
			}
		}
	})
}
