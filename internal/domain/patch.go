package domain

import "encoding/json/v2"

// Patch is a three-state update value for optional fields: leave the field
// alone, set it to a value, or clear it to absent. This replaces the
// double-optional representation that cannot distinguish "omitted" from
// "explicitly null".
type Patch[T any] struct {
	set     bool
	cleared bool
	value   T
}

// Unchanged returns a patch that leaves the field untouched.
func Unchanged[T any]() Patch[T] {
	return Patch[T]{}
}

// Set returns a patch that assigns v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{set: true, value: v}
}

// Cleared returns a patch that removes the value.
func Cleared[T any]() Patch[T] {
	return Patch[T]{cleared: true}
}

// IsSet reports whether the patch assigns a new value.
func (p Patch[T]) IsSet() bool { return p.set }

// IsCleared reports whether the patch clears the field.
func (p Patch[T]) IsCleared() bool { return p.cleared }

// IsUnchanged reports whether the patch leaves the field alone.
func (p Patch[T]) IsUnchanged() bool { return !p.set && !p.cleared }

// Value returns the assigned value. Only meaningful when IsSet is true.
func (p Patch[T]) Value() T { return p.value }

// Apply resolves the patch against the current pointer-optional value.
func (p Patch[T]) Apply(current *T) *T {
	switch {
	case p.set:
		v := p.value
		return &v
	case p.cleared:
		return nil
	default:
		return current
	}
}

// UnmarshalJSON maps the three JSON states onto the patch states: an absent
// field never reaches this method and stays Unchanged, an explicit null
// clears, and a value sets.
func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Cleared[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Set(v)
	return nil
}

// MarshalJSON renders Set patches as their value and everything else as null.
func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if p.set {
		return json.Marshal(p.value)
	}
	return []byte("null"), nil
}
