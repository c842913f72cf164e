package eventkit

import (
	"cmp"
	"runtime"
	"slices"
	"sync"
)

// RegisterOption configures one registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	weak bool
}

// Weak registers the handler without keeping it alive. Once the Handler (or,
// for method handlers, the receiver) is collected the entry is dropped and
// never invoked again.
func Weak() RegisterOption {
	return func(c *registerConfig) {
		c.weak = true
	}
}

type entry[P, R any] struct {
	seq     uint64
	name    string
	kind    Kind
	strong  Func[P, R]
	resolve func() (Func[P, R], bool) // set for weak entries
}

func (e *entry[P, R]) target() (Func[P, R], bool) {
	if e.resolve == nil {
		return e.strong, true
	}
	return e.resolve()
}

// invocation is one live handler captured at dispatch time.
type invocation[P, R any] struct {
	name string
	kind Kind
	fn   Func[P, R]
}

type ordered[P, R any] struct {
	seq uint64
	inv invocation[P, R]
}

// handlerSet is the registry behind one BoundEvent. Entries are keyed by
// handler identity and dispatched in registration order.
type handlerSet[P, R any] struct {
	mu      sync.Mutex
	seq     uint64
	entries map[any]*entry[P, R]

	evicted func(name string)
}

func newHandlerSet[P, R any](evicted func(name string)) *handlerSet[P, R] {
	return &handlerSet[P, R]{
		entries: make(map[any]*entry[P, R]),
		evicted: evicted,
	}
}

// add registers h. It reports false if h was already present, in which case
// the existing entry, strong or weak, is kept. A weak entry whose referent is
// gone does not count as present.
//
// A weak registration of a referent that is never collected is stored
// strong.
func (s *handlerSet[P, R]) add(h *Handler[P, R], weak bool) bool {
	key := h.key()
	e := &entry[P, R]{name: h.name, kind: h.kind}

	var cleanup runtime.Cleanup
	if weak {
		var tracked bool
		cleanup, tracked = h.watch(func() { s.evict(key, e) })
		weak = tracked
	}
	if weak {
		e.resolve = h.weakResolver()
	} else {
		e.strong = h.strong()
	}

	s.mu.Lock()
	if current, ok := s.entries[key]; ok {
		if _, live := current.target(); live {
			s.mu.Unlock()
			cleanup.Stop()
			return false
		}
	}
	s.seq++
	e.seq = s.seq
	s.entries[key] = e
	s.mu.Unlock()
	return true
}

func (s *handlerSet[P, R]) remove(h *Handler[P, R]) bool {
	key := h.key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// evict drops e if it is still the entry registered under key.
func (s *handlerSet[P, R]) evict(key any, e *entry[P, R]) {
	s.mu.Lock()
	current, ok := s.entries[key]
	if ok && current == e {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if ok && current == e && s.evicted != nil {
		s.evicted(e.name)
	}
}

// snapshot returns the live handlers in registration order. Dead weak entries
// found along the way are removed.
func (s *handlerSet[P, R]) snapshot() []invocation[P, R] {
	var dead []string
	s.mu.Lock()
	live := make([]ordered[P, R], 0, len(s.entries))
	for key, e := range s.entries {
		fn, ok := e.target()
		if !ok {
			delete(s.entries, key)
			dead = append(dead, e.name)
			continue
		}
		live = append(live, ordered[P, R]{seq: e.seq, inv: invocation[P, R]{name: e.name, kind: e.kind, fn: fn}})
	}
	s.mu.Unlock()

	if s.evicted != nil {
		for _, name := range dead {
			s.evicted(name)
		}
	}

	slices.SortFunc(live, func(a, b ordered[P, R]) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]invocation[P, R], len(live))
	for i, o := range live {
		out[i] = o.inv
	}
	return out
}

// len counts live entries without evicting.
func (s *handlerSet[P, R]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if _, ok := e.target(); ok {
			n++
		}
	}
	return n
}
