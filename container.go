package closemap

import (
	"fmt"
	"reflect"
	"sort"
)

// Map is the composite resource container: an immutable, insertion-ordered
// mapping whose values may themselves be closable resources, nested
// containers, or sequences of either. Mutation operations return a new Map
// and never touch the receiver, so a Map can be shared freely; the only
// ownership contract is that calling Close relinquishes every resource
// reachable from it.
//
// Map implements io.Closer. Close is safe to call more than once: the
// traversal itself is stateless, and re-closing an already-closed underlying
// resource is that resource's concern.
type Map struct {
	keys    []any
	entries map[any]any
	ann     Annotations
	exts    []Extension
	tracked *trackList
}

// Entry is a key/value pair for ordered construction
type Entry struct {
	Key   any
	Value any
}

// MapOption is a modifier for containers under construction
type MapOption func(*Map)

// WithTag returns an option that sets an annotation on the container
func WithTag[T any](tag Tag[T], val T) MapOption {
	return func(m *Map) {
		m.ann = tag.Set(m.ann, val)
	}
}

// WithAnnotations returns an option that replaces the container's
// annotation set
func WithAnnotations(ann Annotations) MapOption {
	return func(m *Map) {
		m.ann = ann
	}
}

// WithExtension returns an option that registers an extension on the
// container. Extensions run in Order, lowest first. An Init failure at a
// construction site is a programming error and panics; use UseExtension
// for extensions whose Init can fail at runtime.
func WithExtension(ext Extension) MapOption {
	return func(m *Map) {
		if err := registerExtension(m, ext); err != nil {
			panic(err)
		}
	}
}

func registerExtension(m *Map, ext Extension) error {
	m.exts = append(m.exts, ext)
	sort.SliceStable(m.exts, func(i, j int) bool {
		return m.exts[i].Order() < m.exts[j].Order()
	})
	return ext.Init(m)
}

// Well-known empty containers. EmptySwallow never lets a close error escape;
// EmptyIgnore skips closing entirely.
var (
	Empty        = New()
	EmptySwallow = New(WithTag(TagSwallow, true))
	EmptyIgnore  = New(WithTag(TagIgnore, true))
)

// New creates an empty container
func New(opts ...MapOption) *Map {
	m := &Map{entries: map[any]any{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromEntries creates a container preserving the given entry order.
// A repeated key keeps its first position with the last value.
func FromEntries(entries []Entry, opts ...MapOption) *Map {
	m := New(opts...)
	for _, e := range entries {
		m.put(e.Key, e.Value)
	}
	return m
}

// Wrap creates a container from an existing Go map. Go maps carry no
// insertion order, so keys are sorted by their printed form; use FromEntries
// when close order matters.
func Wrap(entries map[any]any, opts ...MapOption) *Map {
	m := New(opts...)
	keys := make([]any, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	for _, k := range keys {
		m.put(k, entries[k])
	}
	return m
}

// WrapAny creates a container from any mapping value, failing with
// InvalidArgumentError when the value is not a mapping
func WrapAny(v any, opts ...MapOption) (*Map, error) {
	if m, ok := v.(*Map); ok {
		next := m.clone()
		for _, opt := range opts {
			opt(next)
		}
		return next, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, &InvalidArgumentError{Value: v, Reason: "not a mapping"}
	}
	m := New(opts...)
	for _, k := range sortedMapKeys(rv) {
		m.put(k.Interface(), rv.MapIndex(k).Interface())
	}
	return m, nil
}

// put mutates in place; only valid while the Map is still private to its
// constructor
func (m *Map) put(key, val any) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = val
}

func (m *Map) clone() *Map {
	next := &Map{
		keys:    append([]any(nil), m.keys...),
		entries: make(map[any]any, len(m.entries)+1),
		ann:     m.ann,
		exts:    append([]Extension(nil), m.exts...),
		tracked: m.tracked,
	}
	for k, v := range m.entries {
		next.entries[k] = v
	}
	return next
}

// Get returns the value stored under key, or def when absent
func (m *Map) Get(key, def any) any {
	if v, ok := m.entries[key]; ok {
		return v
	}
	return def
}

// Lookup returns the value stored under key and whether it was present
func (m *Map) Lookup(key any) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Put returns a new container with key bound to val. Existing keys keep
// their position; new keys append.
func (m *Map) Put(key, val any) *Map {
	next := m.clone()
	next.put(key, val)
	return next
}

// Remove returns a new container without key
func (m *Map) Remove(key any) *Map {
	if _, ok := m.entries[key]; !ok {
		return m
	}
	next := m.clone()
	delete(next.entries, key)
	for i, k := range next.keys {
		if k == key {
			next.keys = append(next.keys[:i], next.keys[i+1:]...)
			break
		}
	}
	return next
}

// Keys returns the container's keys in insertion order
func (m *Map) Keys() []any {
	return append([]any(nil), m.keys...)
}

// Len returns the number of entries
func (m *Map) Len() int {
	return len(m.entries)
}

// Annotations returns the container's annotation set
func (m *Map) Annotations() Annotations {
	return m.ann
}

// WithAnnotationSet returns a new container with the given annotation set
func (m *Map) WithAnnotationSet(ann Annotations) *Map {
	next := m.clone()
	next.ann = ann
	return next
}

// UseExtension returns a new container with the extension registered,
// reporting an Init failure instead of panicking. The receiver is left
// untouched either way.
func (m *Map) UseExtension(ext Extension) (*Map, error) {
	next := m.clone()
	if err := registerExtension(next, ext); err != nil {
		return nil, err
	}
	return next, nil
}

// lookupEntry reads reserved-key entries for the policy resolver
func (m *Map) lookupEntry(key string) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Close releases every resource reachable from the container, nested before
// outer, in key insertion order. The container's own annotations form the
// initial ambient policy: a swallow annotation at the root makes Close total
// (it never returns an error), while without it Close returns the first
// unswallowed failure in traversal order. Resources tracked during guarded
// construction are discharged once their container's entries are done,
// including for built containers nested inside this one; a traversal that
// aborts early still discharges the root's tracked resources before
// returning.
func (m *Map) Close() error {
	vi := &visitor{exts: m.exts}
	next := func() error {
		err := vi.visit(m, rootPolicy, nil)
		vi.discharge(m, nil)
		return err
	}
	for i := len(m.exts) - 1; i >= 0; i-- {
		ext := m.exts[i]
		currentNext := next
		next = func() error {
			return ext.WrapClose(currentNext, m)
		}
	}
	return next()
}

// CloseQuietly closes the container without ever raising: errors and panics
// are delivered to report instead. Meant for deferred cleanup, where an
// error escaping the close could mask an in-flight error from the
// surrounding scope:
//
//	defer m.CloseQuietly(func(err error) { logger.Warn("close", "err", err) })
func (m *Map) CloseQuietly(report func(error)) {
	defer func() {
		if r := recover(); r != nil && report != nil {
			report(fmt.Errorf("closemap: panic during close: %v", r))
		}
	}()
	if err := m.Close(); err != nil && report != nil {
		report(err)
	}
}

func (m *Map) withTracked(list *trackList) *Map {
	next := m.clone()
	next.tracked = list
	return next
}
