package closemap

// Extension provides hooks into the close lifecycle of a container
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a container
	Init(m *Map) error

	// WrapClose intercepts a container's close traversal
	WrapClose(next func() error, m *Map) error

	// OnCloseError observes errors swallowed during traversal.
	// Returns true if the error was handled, stopping further extensions.
	OnCloseError(err *CloseError) bool
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(m *Map) error {
	return nil
}

func (e *BaseExtension) WrapClose(next func() error, m *Map) error {
	return next()
}

func (e *BaseExtension) OnCloseError(err *CloseError) bool {
	return false
}
