package extensions

import (
	"fmt"
	"io"
	"strconv"

	"github.com/m1gwings/treedrawer/tree"

	closemap "github.com/closeable-fn/closemap-go"
)

// TreeDumpExtension renders the container structure to a writer before each
// close traversal. Useful when debugging close order in deeply nested
// containers.
type TreeDumpExtension struct {
	closemap.BaseExtension
	w io.Writer
}

// NewTreeDumpExtension creates a new tree dump extension writing to w
func NewTreeDumpExtension(w io.Writer) *TreeDumpExtension {
	return &TreeDumpExtension{
		BaseExtension: closemap.NewBaseExtension("treedump"),
		w:             w,
	}
}

func (e *TreeDumpExtension) WrapClose(next func() error, m *closemap.Map) error {
	t := tree.NewTree(tree.NodeString("closemap"))
	e.renderMap(t, m)
	fmt.Fprintln(e.w, t)
	return next()
}

func (e *TreeDumpExtension) renderMap(t *tree.Tree, m *closemap.Map) {
	idx := 0
	for _, k := range m.Keys() {
		v, _ := m.Lookup(k)
		e.renderChild(t, &idx, fmt.Sprint(k), v)
	}
}

func (e *TreeDumpExtension) renderChild(t *tree.Tree, idx *int, label string, v any) {
	if a, ok := v.(*closemap.Annotated); ok {
		v = a.Value
	}
	switch n := v.(type) {
	case *closemap.Map:
		child, ok := e.addBranch(t, idx, label)
		if !ok {
			return
		}
		e.renderMap(child, n)
	case []any:
		child, ok := e.addBranch(t, idx, label)
		if !ok {
			return
		}
		j := 0
		for i, el := range n {
			e.renderChild(child, &j, strconv.Itoa(i), el)
		}
	default:
		t.AddChild(tree.NodeString(fmt.Sprintf("%s (%T)", label, v)))
		*idx++
	}
}

func (e *TreeDumpExtension) addBranch(t *tree.Tree, idx *int, label string) (*tree.Tree, bool) {
	t.AddChild(tree.NodeString(label))
	child, err := t.Child(*idx)
	*idx++
	if err != nil {
		return nil, false
	}
	return child, true
}
