package realtime

import "strings"

// Top-level collections of the data store.
const (
	CollectionAdmin    = "admin"
	CollectionUsers    = "user"
	CollectionRequests = "requests"
	CollectionMessages = "messages"
	CollectionNews     = "news"
)

// Path addresses a record or subtree, e.g. "requests/{userId}/{requestId}".
type Path string

// Join builds a path from segments, ignoring empty ones and stray slashes.
func Join(segments ...string) Path {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return Path(strings.Join(parts, "/"))
}

func AdminPath(adminID string) Path { return Join(CollectionAdmin, adminID) }

func HistoryPath(adminID, entryID string) Path {
	return Join(CollectionAdmin, adminID, "history", entryID)
}

func UserPath(userID string) Path { return Join(CollectionUsers, userID) }

func NotificationPath(userID, notificationID string) Path {
	return Join(CollectionUsers, userID, "notification", notificationID)
}

func RequestPath(userID, requestID string) Path {
	return Join(CollectionRequests, userID, requestID)
}

func RequestLogPath(userID, requestID, logID string) Path {
	return Join(CollectionRequests, userID, requestID, "requestsLogs", logID)
}

func MessagePath(userID, messageID string) Path {
	return Join(CollectionMessages, userID, messageID)
}

func NewsPath(newsID string) Path { return Join(CollectionNews, newsID) }

// Segments splits the path into its components.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Collection returns the first segment.
func (p Path) Collection() string {
	segments := p.Segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

// Within reports whether p equals prefix or lies beneath it. The root path contains everything.
// Matching is per segment: "news/ab" is not within "news/a".
func (p Path) Within(prefix Path) bool {
	if prefix == "" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}
