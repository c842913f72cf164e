package eventkit

import (
	"iter"
	"reflect"

	"github.com/randalmurphal/eventkit/pkg/eventkit/registry"
)

// Described is the read-only view of an attached declaration.
type Described interface {
	Doc() string
	Name() string
	QualifiedName() string
	Owner() reflect.Type
	String() string
}

type catalogKey struct {
	owner reflect.Type
	name  string
}

// catalog holds every attached declaration. Entries are never removed.
var catalog = registry.New[catalogKey, Described]()

// Lookup returns the declaration attached to owner under name.
func Lookup(owner reflect.Type, name string) (Described, bool) {
	return catalog.Get(catalogKey{owner: owner, name: name})
}

// LookupFor is Lookup with the owner given as a type parameter.
func LookupFor[T any](name string) (Described, bool) {
	return Lookup(reflect.TypeFor[T](), name)
}

// Declarations yields every attached declaration keyed by qualified name,
// in no particular order.
func Declarations() iter.Seq2[string, Described] {
	return func(yield func(string, Described) bool) {
		for _, d := range catalog.All() {
			if !yield(d.QualifiedName(), d) {
				return
			}
		}
	}
}
