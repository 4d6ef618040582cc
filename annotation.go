package closemap

// Reserved tags recognized by the close protocol. Each tag's key doubles as a
// reserved map key: a container-like node may carry the same marker as an
// ordinary entry under that key, and the entry wins over an annotation when
// both are present.
var (
	// TagIgnore skips a node and its whole subtree during close.
	TagIgnore = NewTag[bool]("ignore")

	// TagSwallow catches close errors at the node where they occur and
	// keeps the traversal going.
	TagSwallow = NewTag[bool]("swallow")

	// TagFn marks how a value without a native close is released. The
	// payload is either the literal true (the value itself is a thunk),
	// a one-argument close procedure, or a sequence of such procedures.
	TagFn = NewTag[any]("fn")

	// TagBeforeClose is a hook invoked with the node before its subtree
	// is processed.
	TagBeforeClose = NewTag[func(any) error]("before-close")

	// TagAfterClose is a hook invoked with the node after its subtree is
	// processed.
	TagAfterClose = NewTag[func(any) error]("after-close")

	// TagExHandler receives every error swallowed under the node.
	TagExHandler = NewTag[func(error)]("ex-handler")
)

// Annotations is an immutable set of policy markers attached to a node.
// The zero value is the empty set.
type Annotations struct {
	values map[string]any
}

// NewAnnotations builds an annotation set from typed tag settings, e.g.
//
//	ann := closemap.NewAnnotations(
//		closemap.Setting(closemap.TagSwallow, true),
//	)
func NewAnnotations(settings ...func(Annotations) Annotations) Annotations {
	ann := Annotations{}
	for _, set := range settings {
		ann = set(ann)
	}
	return ann
}

// Setting adapts a tag/value pair for use with NewAnnotations
func Setting[T any](tag Tag[T], val T) func(Annotations) Annotations {
	return func(ann Annotations) Annotations {
		return tag.Set(ann, val)
	}
}

// Len returns the number of annotations in the set
func (a Annotations) Len() int {
	return len(a.values)
}

// Has reports whether the set contains the given key
func (a Annotations) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Without returns a new set with the given key removed
func (a Annotations) Without(key string) Annotations {
	if !a.Has(key) {
		return a
	}
	values := make(map[string]any, len(a.values)-1)
	for k, v := range a.values {
		if k != key {
			values[k] = v
		}
	}
	return Annotations{values: values}
}

func (a Annotations) lookup(key string) (any, bool) {
	val, ok := a.values[key]
	return val, ok
}

func (a Annotations) with(key string, val any) Annotations {
	values := make(map[string]any, len(a.values)+1)
	for k, v := range a.values {
		values[k] = v
	}
	values[key] = val
	return Annotations{values: values}
}

// merge returns a set holding the receiver's entries overridden by other's
func (a Annotations) merge(other Annotations) Annotations {
	if other.Len() == 0 {
		return a
	}
	if a.Len() == 0 {
		return other
	}
	values := make(map[string]any, len(a.values)+len(other.values))
	for k, v := range a.values {
		values[k] = v
	}
	for k, v := range other.values {
		values[k] = v
	}
	return Annotations{values: values}
}

// Annotated attaches an annotation set to an arbitrary value so that policy
// markers and hooks can ride along with values that are not containers
// themselves. The wrapper is transparent to the close traversal: the wrapped
// value is processed with the attached annotations in effect.
type Annotated struct {
	Value any
	ann   Annotations
}

// Annotate wraps a value with an annotation set
func Annotate(value any, ann Annotations) *Annotated {
	return &Annotated{Value: value, ann: ann}
}

// Annotations returns the attached annotation set
func (a *Annotated) Annotations() Annotations {
	return a.ann
}
