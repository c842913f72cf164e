package eventkit

import (
	"reflect"
	"runtime"
	"weak"

	"github.com/randalmurphal/eventkit/pkg/eventkit/registry"
)

// instanceEntry is one owner instance's event. A heap-allocated instance is
// held through wp only; an instance the collector never frees, such as a
// package-level variable, is held in static.
type instanceEntry[T, P, R any] struct {
	event  *BoundEvent[P, R]
	wp     weak.Pointer[T]
	static *T
}

func (e *instanceEntry[T, P, R]) owns(inst *T) bool {
	if e.static != nil {
		return e.static == inst
	}
	return e.wp.Value() == inst
}

// instanceTable maps live owner instances to their BoundEvent without keeping
// the instances alive. Entries are keyed by address and checked against the
// instance on every lookup, so an address reused after a collection never
// resolves to the previous owner's event.
type instanceTable[T, P, R any] struct {
	entries *registry.Registry[uintptr, *instanceEntry[T, P, R]]
}

func newInstanceTable[T, P, R any]() *instanceTable[T, P, R] {
	return &instanceTable[T, P, R]{
		entries: registry.New[uintptr, *instanceEntry[T, P, R]](),
	}
}

// resolve returns the BoundEvent for inst, calling create on first use.
// create receives a resolver for the instance that holds it only weakly.
func (t *instanceTable[T, P, R]) resolve(inst *T, create func(owner func() any) *BoundEvent[P, R]) *BoundEvent[P, R] {
	addr := reflect.ValueOf(inst).Pointer()
	for {
		e, _ := t.entries.GetOrCreate(addr, func() *instanceEntry[T, P, R] {
			return t.newEntry(addr, inst, create)
		})
		if e.owns(inst) {
			return e.event
		}
		// The previous owner at addr was collected and its cleanup has not run.
		t.entries.CompareAndDelete(addr, func(v *instanceEntry[T, P, R]) bool { return v == e })
	}
}

func (t *instanceTable[T, P, R]) newEntry(addr uintptr, inst *T, create func(owner func() any) *BoundEvent[P, R]) *instanceEntry[T, P, R] {
	e := &instanceEntry[T, P, R]{}
	c := runtime.AddCleanup(inst, func(e *instanceEntry[T, P, R]) {
		t.entries.CompareAndDelete(addr, func(v *instanceEntry[T, P, R]) bool { return v == e })
	}, e)

	if c == (runtime.Cleanup{}) {
		// Not heap allocated: never collected and not weakly referenceable.
		e.static = inst
		e.event = create(func() any { return inst })
		return e
	}

	wp := weak.Make(inst)
	e.wp = wp
	e.event = create(func() any {
		if p := wp.Value(); p != nil {
			return p
		}
		return nil
	})
	return e
}

func (t *instanceTable[T, P, R]) len() int {
	return t.entries.Len()
}

// reclaimable reports whether values of t release their memory once
// unreachable. Pointer-free values under 16 bytes share allocation blocks
// with their neighbours, and a block is freed only when all of them are
// unreachable; weak references to such values can stay live indefinitely.
func reclaimable(t reflect.Type) bool {
	return t.Size() >= 16 || hasPointers(t)
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
