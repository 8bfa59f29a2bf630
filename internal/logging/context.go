package logging

import "context"

type attrsKey struct{}

// ContextWith returns ctx carrying key-value pairs that every Logger
// method called with the returned context appends to its entry.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := fromContext(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

func fromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]any)
	return attrs
}

// withContext appends the attributes carried by ctx to args.
func withContext(ctx context.Context, args []any) []any {
	attrs := fromContext(ctx)
	if len(attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(args)+len(attrs))
	out = append(out, args...)
	return append(out, attrs...)
}
