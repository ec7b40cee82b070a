package log

import "context"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID tags ctx so every log line of one chat event or HTTP
// request can be grouped.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
