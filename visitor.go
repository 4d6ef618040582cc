package closemap

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// reservedEntryNames are the policy markers a container-like node may carry
// as ordinary entries. Entries under these keys configure the node instead of
// being treated as children, and they win over the equivalent annotation.
var reservedEntryNames = map[string]bool{
	TagIgnore.Key():      true,
	TagSwallow.Key():     true,
	TagFn.Key():          true,
	TagBeforeClose.Key(): true,
	TagAfterClose.Key():  true,
	TagExHandler.Key():   true,
}

// visitor walks a container's backing structure depth-first, releasing every
// reachable resource bottom-up. The ambient policy travels down the call
// stack as a value, so concurrent closes of independent containers cannot
// interfere with each other.
type visitor struct {
	exts []Extension
}

// visit processes a single node: resolve the effective policy, run the
// before-close hook, handle the node body (recurse for containers and
// sequences, dispatch for leaves), then run the after-close hook.
//
// An ignored node is pruned outright: neither its hooks nor any of its
// descendants are processed, and a deeper ignore=false cannot re-enable a
// skipped subtree.
func (vi *visitor) visit(node any, amb policy, path []string) error {
	ann, node := unwrapAnnotated(node)
	m, isMap := node.(*Map)
	if isMap {
		ann = ann.merge(m.ann)
	}
	entry := entryLookupFor(node, m, isMap)
	if entry != nil {
		if v, ok := entry(TagFn.Key()); ok {
			ann = TagFn.Set(ann, v)
		}
	}

	eff := amb.resolve(ann, entry)
	if eff.ignore {
		return nil
	}

	if h := hookFor(TagBeforeClose, ann, entry); h != nil {
		if err := vi.fail(eff, path, "before-close", node, h(node)); err != nil {
			return err
		}
	}

	if err := vi.visitBody(node, m, isMap, ann, eff, path); err != nil {
		return err
	}

	if h := hookFor(TagAfterClose, ann, entry); h != nil {
		if err := vi.fail(eff, path, "after-close", node, h(node)); err != nil {
			return err
		}
	}
	return nil
}

// visitBody handles the node itself once policy and the before hook have run.
// Capability order: composite container, then closable/fn-tagged leaf, then
// raw mapping, then sequence, then the dispatch no-op fallback. Containers
// are recursed inline rather than closed through their own Close method so
// that the ambient policy keeps flowing into them.
func (vi *visitor) visitBody(node any, m *Map, isMap bool, ann Annotations, eff policy, path []string) error {
	if isMap {
		// a fn marker closes the container through a custom procedure
		// instead of recursion
		if payload, ok := TagFn.Get(ann); ok {
			if err := vi.fail(eff, path, "close", node, closeWith(node, payload)); err != nil {
				return err
			}
			vi.discharge(m, path)
			return nil
		}
		for _, k := range m.keys {
			if s, ok := k.(string); ok && reservedEntryNames[s] {
				continue
			}
			if err := vi.visit(m.entries[k], eff, append(path, fmt.Sprint(k))); err != nil {
				return err
			}
		}
		vi.discharge(m, path)
		return nil
	}
	if node == nil {
		return nil
	}

	if isDispatchable(node, ann) {
		return vi.fail(eff, path, "close", node, closeOne(node, ann))
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Map:
		for _, k := range sortedMapKeys(rv) {
			if s, ok := k.Interface().(string); ok && reservedEntryNames[s] {
				continue
			}
			child := rv.MapIndex(k).Interface()
			if err := vi.visit(child, eff, append(path, fmt.Sprint(k.Interface()))); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break // byte blobs are opaque
		}
		for i := 0; i < rv.Len(); i++ {
			if err := vi.visit(rv.Index(i).Interface(), eff, append(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
		return nil
	}

	return vi.fail(eff, path, "close", node, closeOne(node, ann))
}

// discharge releases a container's construction-tracked resources once its
// own entries are done. Each tracked resource closes at most once, so a
// container reached through several paths only discharges on the first.
// Failures never abort the traversal; they go to the extension side channel.
func (vi *visitor) discharge(m *Map, path []string) {
	if m.tracked == nil {
		return
	}
	m.tracked.discharge(func(err error) {
		cerr := &CloseError{
			Path:  strings.Join(append(append([]string(nil), path...), "(tracked)"), "."),
			Stage: "close",
			Cause: err,
		}
		for _, ext := range vi.exts {
			if ext.OnCloseError(cerr) {
				break
			}
		}
	})
}

// fail applies the effective policy to an error from a hook or the dispatch.
// Swallowed errors go to the node's handler and to the extension side
// channel; unswallowed errors abort the remaining siblings at every level.
func (vi *visitor) fail(eff policy, path []string, stage string, node any, err error) error {
	if err == nil {
		return nil
	}
	cerr := &CloseError{
		Node:  node,
		Path:  strings.Join(path, "."),
		Stage: stage,
		Cause: err,
	}
	if !eff.swallow {
		return cerr
	}
	if eff.handler != nil {
		eff.handler(err)
	}
	for _, ext := range vi.exts {
		if ext.OnCloseError(cerr) {
			break
		}
	}
	return nil
}

// unwrapAnnotated peels Annotated wrappers, accumulating their annotation
// sets with inner wrappers overriding outer ones
func unwrapAnnotated(node any) (Annotations, any) {
	ann := Annotations{}
	for {
		a, ok := node.(*Annotated)
		if !ok || a == nil {
			return ann, node
		}
		ann = ann.merge(a.ann)
		node = a.Value
	}
}

// isDispatchable reports whether the node closes as a leaf: a registered
// type, a native closable, or a fn-tagged value. These win over the
// container and sequence classifications.
func isDispatchable(node any, ann Annotations) bool {
	if _, ok := lookupCloser(node); ok {
		return true
	}
	switch node.(type) {
	case io.Closer, interface{ Close() }:
		return true
	}
	_, ok := TagFn.Get(ann)
	return ok
}

// hookFor resolves a hook from the node's annotations and, for mappings,
// its reserved-key entry, the entry winning
func hookFor(tag Tag[func(any) error], ann Annotations, entry entryLookup) func(any) error {
	h, _ := tag.Get(ann)
	if entry != nil {
		if v, ok := entry(tag.Key()); ok {
			if fn, ok := v.(func(any) error); ok {
				h = fn
			}
		}
	}
	return h
}

// entryLookupFor builds the reserved-key reader for container-like nodes
func entryLookupFor(node any, m *Map, isMap bool) entryLookup {
	if isMap {
		return m.lookupEntry
	}
	if node == nil {
		return nil
	}
	rv := reflect.ValueOf(node)
	if rv.Kind() != reflect.Map {
		return nil
	}
	kt := rv.Type().Key()
	if kt.Kind() != reflect.String && kt.Kind() != reflect.Interface {
		return nil
	}
	return func(key string) (any, bool) {
		kv := reflect.ValueOf(key)
		if kt.Kind() == reflect.String && kt != kv.Type() {
			kv = kv.Convert(kt)
		}
		v := rv.MapIndex(kv)
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
}

// sortedMapKeys returns a raw map's keys in a deterministic order. Raw Go
// maps carry no insertion order, so traversal sorts by the keys' printed
// form; use Map or FromEntries when close order matters.
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
