package closemap

// Tag is a type-safe key for node annotations
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (also the reserved map key for this tag)
func (t Tag[T]) Key() string {
	return t.key
}

// Get retrieves the tag value from an annotation set
func (t Tag[T]) Get(ann Annotations) (T, bool) {
	val, ok := ann.lookup(t.key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typed, true
}

// MustGet retrieves the tag value or panics if not found
func (t Tag[T]) MustGet(ann Annotations) T {
	val, ok := t.Get(ann)
	if !ok {
		panic("closemap: tag " + t.key + " not found")
	}
	return val
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(ann Annotations, defaultVal T) T {
	if val, ok := t.Get(ann); ok {
		return val
	}
	return defaultVal
}

// Set returns a new annotation set with the tag value stored.
// The receiver set is never mutated.
func (t Tag[T]) Set(ann Annotations, val T) Annotations {
	return ann.with(t.key, val)
}
