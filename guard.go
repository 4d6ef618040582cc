package closemap

import "sync"

// Binding names a single resource-acquisition step
type Binding struct {
	Name string
	Open func() (any, error)
}

// Bound holds the opened values of a successful OpenAll, in acquisition
// order. Every value is handed back still open; closing them is the
// caller's responsibility.
type Bound struct {
	names  []string
	values map[string]any
}

// Value returns the opened value bound to name
func (b *Bound) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names returns the binding names in acquisition order
func (b *Bound) Names() []string {
	return append([]string(nil), b.names...)
}

// OpenAll evaluates the bindings one at a time. If any step fails, every
// value already opened is closed in reverse acquisition order before the
// failure is returned as a ConstructionError carrying the original cause;
// errors raised while unwinding never mask it. A panicking step unwinds the
// same way before the panic resumes.
func OpenAll(bindings ...Binding) (*Bound, error) {
	b := &Bound{values: make(map[string]any, len(bindings))}
	var opened []any
	committed := false
	defer func() {
		if committed {
			return
		}
		unwind(opened, nil)
	}()

	for _, bind := range bindings {
		v, err := bind.Open()
		if err != nil {
			return nil, newConstructionError(bind.Name, err)
		}
		opened = append(opened, v)
		if _, dup := b.values[bind.Name]; !dup {
			b.names = append(b.names, bind.Name)
		}
		b.values[bind.Name] = v
	}

	committed = true
	return b, nil
}

// Let opens all bindings and, on success, runs body with them in scope.
// Nothing is auto-closed after body returns: the bindings stay open unless
// body closes them itself. On an acquisition failure body never runs.
func Let(bindings []Binding, body func(*Bound) error) error {
	b, err := OpenAll(bindings...)
	if err != nil {
		return err
	}
	return body(b)
}

// unwind closes values in reverse order, reporting rather than raising
func unwind(values []any, report func(error)) {
	for i := len(values) - 1; i >= 0; i-- {
		if err := closeOne(values[i], Annotations{}); err != nil && report != nil {
			report(err)
		}
	}
}

type buildState int

const (
	stateTracking buildState = iota
	stateCommitted
	stateUnwound
)

// trackList is the tracking set of one guarded construction. Each entry is
// discharged at most once, in reverse tracking order.
type trackList struct {
	mu      sync.Mutex
	entries []trackEntry
}

type trackEntry struct {
	value any
	done  bool
}

func (l *trackList) add(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, trackEntry{value: v})
}

func (l *trackList) discharge(report func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].done {
			continue
		}
		l.entries[i].done = true
		if err := closeOne(l.entries[i].value, Annotations{}); err != nil && report != nil {
			report(err)
		}
	}
}

// BuildCtx collects values marked for tracking while a composite value is
// under construction. It is exclusively owned by the in-flight Build call
// and must not be shared across concurrent constructions.
type BuildCtx struct {
	tracked *trackList
	state   buildState
}

// Track marks a value for unwinding should the construction fail, and
// returns it for inline use. Panics once the construction has committed or
// unwound.
func (b *BuildCtx) Track(v any) any {
	if b.state != stateTracking {
		panic("closemap: Track outside an active Build")
	}
	b.tracked.add(v)
	return v
}

// Track is the typed convenience form of (*BuildCtx).Track
func Track[T any](b *BuildCtx, v T) T {
	b.Track(v)
	return v
}

// Build runs a guarded construction of a container. If build returns an
// error or panics, every tracked value is closed in reverse tracking order
// and the original failure is re-raised; the tracked values' own close
// errors never mask it. On success the container is returned open, holding
// a reference to the tracking set so a later Map.Close also discharges it.
func Build(build func(*BuildCtx) (*Map, error)) (*Map, error) {
	b := &BuildCtx{tracked: &trackList{}}
	defer func() {
		if b.state == stateCommitted {
			return
		}
		b.state = stateUnwound
		b.tracked.discharge(nil)
	}()

	m, err := build(b)
	if err != nil {
		return nil, newConstructionError("", err)
	}
	b.state = stateCommitted
	if m == nil {
		return nil, nil
	}
	return m.withTracked(b.tracked), nil
}
