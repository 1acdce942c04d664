package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/philsca/registrar/internal/realtime"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func publisherOrNop(p realtime.Publisher) realtime.Publisher {
	if p == nil {
		return realtime.NopPublisher{}
	}
	return p
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

// formatLongDateTime renders t like "April 29th, 2025 at 3:04:05 PM PST".
func formatLongDateTime(t time.Time) string {
	day := t.Day()
	return fmt.Sprintf("%s %d%s, %d at %s", t.Month(), day, ordinalSuffix(day), t.Year(), t.Format("3:04:05 PM MST"))
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}
