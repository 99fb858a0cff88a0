package chat

import "context"

// DeltaHandler receives partial reply text while a backend exchange streams.
type DeltaHandler func(chunk string)

type deltaKey struct{}

// WithDeltaHandler attaches fn to ctx so a streaming completer can report chunks.
func WithDeltaHandler(ctx context.Context, fn DeltaHandler) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, deltaKey{}, fn)
}

// DeltaHandlerFrom returns the handler attached to ctx, if any.
func DeltaHandlerFrom(ctx context.Context) (DeltaHandler, bool) {
	fn, ok := ctx.Value(deltaKey{}).(DeltaHandler)
	return fn, ok && fn != nil
}
