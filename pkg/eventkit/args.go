package eventkit

import "maps"

// Args is a general-purpose payload carrying positional and keyword values,
// for events whose handlers do not share a single payload struct.
// Declarations with a concrete payload type should use that type instead.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// A builds Args from positional values.
func A(positional ...any) Args {
	return Args{Positional: positional}
}

// With returns a copy of a with key set. The receiver is not modified.
func (a Args) With(key string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	maps.Copy(kw, a.Keyword)
	kw[key] = value
	return Args{Positional: a.Positional, Keyword: kw}
}

// At returns the i-th positional value, or nil if out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a.Positional) {
		return nil
	}
	return a.Positional[i]
}

// Get returns a keyword value.
func (a Args) Get(key string) (any, bool) {
	v, ok := a.Keyword[key]
	return v, ok
}

// Len returns the number of positional values.
func (a Args) Len() int {
	return len(a.Positional)
}
