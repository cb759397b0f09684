package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Slot holds a value that is either absent (not yet computed) or present.
// A present empty value is distinct from an absent one. The zero Slot is absent.
type Slot[T any] struct {
	value   T
	present bool
}

// Present returns a slot holding v. A nil slice or map is stored as an
// empty one so the slot never encodes as null.
func Present[T any](v T) Slot[T] {
	return Slot[T]{value: nonNil(v), present: true}
}

func nonNil[T any](v T) T {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
		}
	case reflect.Map:
		if rv.IsNil() {
			rv.Set(reflect.MakeMap(rv.Type()))
		}
	}
	return v
}

// Absent returns an empty slot.
func Absent[T any]() Slot[T] {
	return Slot[T]{}
}

// Get returns the value and whether it is present.
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.present
}

// IsPresent reports whether the slot holds a value.
func (s Slot[T]) IsPresent() bool {
	return s.present
}

// MarshalJSON encodes an absent slot as null.
func (s Slot[T]) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(nonNil(s.value))
}

// UnmarshalJSON decodes null as absent. Numbers are kept as json.Number.
func (s *Slot[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Slot[T]{}
		return nil
	}
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*s = Slot[T]{value: v, present: true}
	return nil
}
