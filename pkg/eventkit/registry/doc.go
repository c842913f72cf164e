// Package registry provides a generic thread-safe map for values indexed by key.
//
// Registry backs the two lookup tables of eventkit: the per-declaration
// instance table (weak instance pointer to bound event) and the process-wide
// catalog of attached declarations (qualified name to declaration).
//
// # Lazy Initialization
//
// GetOrCreate is atomic: the factory is called at most once per key, even
// when many goroutines race on first access:
//
//	bound, created := table.GetOrCreate(key, func() *Bound {
//	    return newBound(owner)
//	})
//
// # First Writer Wins
//
// Insert never overwrites. It reports whether the caller's value was stored:
//
//	if existing, ok := r.Insert(name, decl); !ok && existing != decl {
//	    return ErrAlreadyAttached
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. All iterates over a
// snapshot, allowing mutations during iteration:
//
//	for key, value := range r.All() {
//	    if stale(value) {
//	        r.Delete(key) // Won't affect current iteration
//	    }
//	}
package registry
