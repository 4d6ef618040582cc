package closemap

import (
	"errors"
	"reflect"
	"sync"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("closemap(registry): nil reflect.Type provided")
	// ErrNilCloser is returned when a nil close procedure is provided.
	ErrNilCloser = errors.New("closemap(registry): nil close procedure provided")
)

// closerRegistry maps concrete types to close procedures. It is process-wide
// and append-only: entries persist for the process lifetime and are visible
// to every subsequent dispatch call.
type closerRegistry struct {
	m sync.Map // map[reflect.Type]func(any) error
}

var closers closerRegistry

// RegisterCloser associates a close procedure with a concrete type. The
// dispatch consults the registry before probing for a native close, so
// registration overrides native behavior for that type. Re-registering a
// type replaces the previous procedure.
func RegisterCloser(t reflect.Type, fn func(any) error) error {
	if t == nil {
		return ErrNilType
	}
	if fn == nil {
		return ErrNilCloser
	}
	closers.m.Store(t, fn)
	return nil
}

// RegisterCloserFor registers a typed close procedure for T
func RegisterCloserFor[T any](fn func(T) error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	_ = RegisterCloser(t, func(v any) error {
		return fn(v.(T))
	})
}

// lookupCloser returns the registered close procedure for v's dynamic type
func lookupCloser(v any) (func(any) error, bool) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, false
	}
	fn, ok := closers.m.Load(t)
	if !ok {
		return nil, false
	}
	return fn.(func(any) error), true
}
