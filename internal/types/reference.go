package types

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Identifiable is implemented by processor objects that can appear collapsed to their id
type Identifiable interface {
	GetID() string
}

// Reference is a nested processor object that is either an id or the expanded object.
// The zero value is an empty reference.
type Reference[T Identifiable] struct {
	id       string
	expanded *T
}

// RefID builds a collapsed reference
func RefID[T Identifiable](id string) Reference[T] {
	return Reference[T]{id: id}
}

// RefExpanded builds a reference that carries the full object
func RefExpanded[T Identifiable](v T) Reference[T] {
	return Reference[T]{id: v.GetID(), expanded: &v}
}

// ID returns the referenced id whether or not the object is expanded
func (r Reference[T]) ID() string {
	if r.expanded != nil {
		return (*r.expanded).GetID()
	}
	return r.id
}

// IsEmpty reports whether the reference points at nothing
func (r Reference[T]) IsEmpty() bool {
	return r.ID() == ""
}

// Expanded returns the expanded object if present
func (r Reference[T]) Expanded() (T, bool) {
	if r.expanded == nil {
		var zero T
		return zero, false
	}
	return *r.expanded, true
}

// Resolve returns the expanded object, fetching it by id when only the id is known
func (r Reference[T]) Resolve(ctx context.Context, fetch func(ctx context.Context, id string) (T, error)) (T, error) {
	if v, ok := r.Expanded(); ok {
		return v, nil
	}
	var zero T
	if r.id == "" {
		return zero, fmt.Errorf("cannot resolve empty reference")
	}
	return fetch(ctx, r.id)
}

func (r *Reference[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = Reference[T]{}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Reference[T]{id: id}
		return nil
	default:
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*r = RefExpanded(v)
		return nil
	}
}

func (r Reference[T]) MarshalJSON() ([]byte, error) {
	if r.expanded != nil {
		return json.Marshal(*r.expanded)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}
