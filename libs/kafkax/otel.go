package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceHeaders adds the W3C trace context of ctx to headers. Existing keys
// are overwritten in place.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	c := headerCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, &c)
	return c
}

// ExtractTraceContext continues the trace carried by msg, for consumers of the
// lifecycle topics.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	c := headerCarrier(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &c)
}

type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string { return HeaderValue(*c, key) }

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range *c {
		if (*c)[i].Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
