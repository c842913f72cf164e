package eventkit

import "context"

type firingKey struct{}

// firing is the per-Trigger state handed to every handler through its context.
type firing struct {
	id     string
	sender any
}

func withFiring(ctx context.Context, f firing) context.Context {
	return context.WithValue(ctx, firingKey{}, f)
}

func firingFrom(ctx context.Context) (firing, bool) {
	f, ok := ctx.Value(firingKey{}).(firing)
	return f, ok
}

// FiringID returns the identifier shared by every handler invocation of one
// Trigger or CallEach call, or "" outside a handler.
func FiringID(ctx context.Context) string {
	f, _ := firingFrom(ctx)
	return f.id
}

// Sender returns the instance whose event fired, or nil when the event was
// fired at type level. Type-level handlers see the instance too when the
// firing came through it.
func Sender(ctx context.Context) any {
	f, _ := firingFrom(ctx)
	return f.sender
}

// SenderAs is Sender with a type assertion.
func SenderAs[T any](ctx context.Context) (*T, bool) {
	s, ok := Sender(ctx).(*T)
	return s, ok
}
