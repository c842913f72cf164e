package eventkit_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/eventkit/pkg/eventkit"
)

// lockedBuffer is a bytes.Buffer safe for the concurrent writes made by
// handlers running as tasks.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *lockedBuffer) {
	buf := &lockedBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// recorder collects handler calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) handler(label string) eventkit.Func[string, struct{}] {
	return func(_ context.Context, _ string) (struct{}, error) {
		r.add(label)
		return struct{}{}, nil
	}
}

const (
	waitFor = time.Second
	tick    = time.Millisecond
)
