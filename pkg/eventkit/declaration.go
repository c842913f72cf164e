package eventkit

import (
	"fmt"
	"path"
	"reflect"
	"sync"

	"github.com/randalmurphal/eventkit/pkg/eventkit/observability"
)

// identity is the naming shared by a declaration and every BoundEvent
// resolved from it. The name is fixed by the first successful Attach.
type identity struct {
	doc string

	mu       sync.RWMutex
	name     string
	qualName string
}

func (id *identity) qualname() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.qualName
}

// Declaration is an event declared on owner type T, with payload P and
// per-handler result R.
//
// Resolve(nil) is the type-level event. Resolve(inst) is the event of one
// instance, created on first use and dropped once inst is collected.
// Firing a per-instance event fires the type-level event first.
type Declaration[T, P, R any] struct {
	meta      *identity
	cfg       *settings
	typeLevel *BoundEvent[P, R]
	instances *instanceTable[T, P, R]
}

// NewDeclaration creates an unattached event declaration on owner type T.
// It fails with ErrZeroSizeOwner if T has no size.
func NewDeclaration[T, P, R any](doc string, opts ...Option) (*Declaration[T, P, R], error) {
	owner := reflect.TypeFor[T]()
	if owner.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroSizeOwner, owner)
	}

	meta := &identity{doc: doc}
	cfg := newSettings(opts)
	if !reclaimable(owner) {
		observability.LogRetainedType(cfg.log(), "owner", owner.String())
	}
	return &Declaration[T, P, R]{
		meta:      meta,
		cfg:       cfg,
		typeLevel: newBoundEvent[P, R](meta, cfg, nil, nil),
		instances: newInstanceTable[T, P, R](),
	}, nil
}

// Declare is like NewDeclaration but panics on error.
// Use for package-level declarations.
func Declare[T, P, R any](doc string, opts ...Option) *Declaration[T, P, R] {
	d, err := NewDeclaration[T, P, R](doc, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Attach names the declaration and records it in the catalog under its
// owner type. A declaration attaches once.
func (d *Declaration[T, P, R]) Attach(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	owner := reflect.TypeFor[T]()
	qual := qualify(owner, name)

	d.meta.mu.Lock()
	defer d.meta.mu.Unlock()

	if d.meta.name != "" {
		return fmt.Errorf("%w: declaration is already %s", ErrAlreadyAttached, d.meta.qualName)
	}
	if _, inserted := catalog.Insert(catalogKey{owner: owner, name: name}, d); !inserted {
		return fmt.Errorf("%w: %s is taken", ErrAlreadyAttached, qual)
	}
	d.meta.name = name
	d.meta.qualName = qual
	return nil
}

// MustAttach is like Attach but panics on error.
// Use at package init where failure is a programming error.
func (d *Declaration[T, P, R]) MustAttach(name string) *Declaration[T, P, R] {
	if err := d.Attach(name); err != nil {
		panic(err)
	}
	return d
}

// Resolve returns the event for inst, or the type-level event if inst is nil.
// The same instance always resolves to the same BoundEvent while it is alive.
func (d *Declaration[T, P, R]) Resolve(inst *T) *BoundEvent[P, R] {
	if inst == nil {
		return d.typeLevel
	}
	return d.instances.resolve(inst, func(owner func() any) *BoundEvent[P, R] {
		return newBoundEvent(d.meta, d.cfg, d.typeLevel, owner)
	})
}

// Type returns the type-level event.
func (d *Declaration[T, P, R]) Type() *BoundEvent[P, R] {
	return d.typeLevel
}

// Set always fails: event slots cannot be replaced at either level.
func (d *Declaration[T, P, R]) Set(inst *T, _ any) error {
	return &ImmutableError{Event: d.describe(), Instance: inst != nil}
}

// Instances returns the number of live per-instance events.
func (d *Declaration[T, P, R]) Instances() int {
	return d.instances.len()
}

// Doc returns the documentation string given to Declare.
func (d *Declaration[T, P, R]) Doc() string {
	return d.meta.doc
}

// Name returns the attached name, or "".
func (d *Declaration[T, P, R]) Name() string {
	d.meta.mu.RLock()
	defer d.meta.mu.RUnlock()
	return d.meta.name
}

// QualifiedName returns "<pkg>.<Owner>.<name>", or "" before Attach.
func (d *Declaration[T, P, R]) QualifiedName() string {
	return d.meta.qualname()
}

// Owner returns the owner type T.
func (d *Declaration[T, P, R]) Owner() reflect.Type {
	return reflect.TypeFor[T]()
}

// String returns a description including the documentation string.
func (d *Declaration[T, P, R]) String() string {
	if d.meta.doc == "" {
		return "event " + d.describe()
	}
	return fmt.Sprintf("event %s: %s", d.describe(), d.meta.doc)
}

func (d *Declaration[T, P, R]) describe() string {
	if q := d.meta.qualname(); q != "" {
		return q
	}
	return qualify(reflect.TypeFor[T](), "<unattached>")
}

func qualify(owner reflect.Type, name string) string {
	typeName := owner.Name()
	if typeName == "" {
		return owner.String() + "." + name
	}
	if pkg := owner.PkgPath(); pkg != "" {
		return path.Base(pkg) + "." + typeName + "." + name
	}
	return typeName + "." + name
}
