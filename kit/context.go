package kit

import "context"

type contextKey string

const (
	RequestIDKey contextKey = "kit_request_id"
	PageIDKey    contextKey = "kit_page_id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithPageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, PageIDKey, id)
}

func GetPageID(ctx context.Context) string {
	v, _ := ctx.Value(PageIDKey).(string)
	return v
}
