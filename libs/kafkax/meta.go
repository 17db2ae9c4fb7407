package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys set on every lifecycle message.
const (
	HeaderEventID     = "event_id"
	HeaderEventType   = "event_type"
	HeaderContentType = "content-type"
)

// HeaderValue returns the first value stored under key, or "".
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma separated broker list. Blank entries are skipped;
// an empty list is nil.
func SplitBrokers(raw string) []string {
	brokers := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' })
	out := brokers[:0]
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
