package closemap

import (
	"fmt"
	"runtime/debug"
)

// InvalidArgumentError reports a construction-time precondition violation,
// such as wrapping a value that is not a mapping.
type InvalidArgumentError struct {
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("closemap: invalid argument %T: %s", e.Value, e.Reason)
}

// ConstructionError is returned when a resource-acquisition step fails during
// guarded construction. Already-acquired resources have been closed in
// reverse order by the time the error is observed.
type ConstructionError struct {
	Step       string
	Cause      error
	StackTrace []byte
}

func (e *ConstructionError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("closemap: construction failed at %q: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("closemap: construction failed: %v", e.Cause)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// CloseError is raised by the closable dispatch or a hook during traversal.
// Path identifies the failing node best-effort and Stage names which step of
// node processing failed ("before-close", "close", "after-close").
type CloseError struct {
	Node  any
	Path  string
	Stage string
	Cause error
}

func (e *CloseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("closemap: %s failed at %s: %v", e.Stage, e.Path, e.Cause)
	}
	return fmt.Sprintf("closemap: %s failed: %v", e.Stage, e.Cause)
}

func (e *CloseError) Unwrap() error {
	return e.Cause
}

// UnsupportedCloseTargetError reports a fn annotation whose payload is
// neither the literal true, a close procedure, nor a sequence of close
// procedures.
type UnsupportedCloseTargetError struct {
	Value   any
	Payload any
}

func (e *UnsupportedCloseTargetError) Error() string {
	return fmt.Sprintf("closemap: cannot close %T with payload of type %T", e.Value, e.Payload)
}

func newConstructionError(step string, cause error) *ConstructionError {
	return &ConstructionError{
		Step:       step,
		Cause:      cause,
		StackTrace: debug.Stack(),
	}
}
