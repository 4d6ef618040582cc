package closemap

import "io"

// CloserFunc is an adapter that allows ordinary functions to be used as
// closable values. It follows the same pattern as net/http.HandlerFunc.
type CloserFunc func() error

// Close calls f.
func (f CloserFunc) Close() error {
	return f()
}

// closeOne releases a single value. The capability checks are ordered:
// the type registry wins over a native close, which wins over the fn
// annotation; a value with none of the three is left untouched.
//
// Exactly one release side effect happens per invocation. Failures are
// returned, never swallowed; swallowing is the policy layer's job.
func closeOne(v any, ann Annotations) error {
	if v == nil {
		return nil
	}
	if fn, ok := lookupCloser(v); ok {
		return fn(v)
	}
	switch c := v.(type) {
	case io.Closer:
		return c.Close()
	case interface{ Close() }:
		c.Close()
		return nil
	}
	payload, ok := TagFn.Get(ann)
	if !ok {
		return nil
	}
	return closeWith(v, payload)
}

// closeWith releases v according to a fn annotation payload
func closeWith(v, payload any) error {
	switch p := payload.(type) {
	case bool:
		if !p {
			return nil
		}
		// the value itself is the closing thunk
		switch fn := v.(type) {
		case func() error:
			return fn()
		case func():
			fn()
			return nil
		}
		return &UnsupportedCloseTargetError{Value: v, Payload: payload}
	case func(any) error:
		return p(v)
	case func(any):
		p(v)
		return nil
	case []func(any) error:
		for _, fn := range p {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return &UnsupportedCloseTargetError{Value: v, Payload: payload}
	}
}
