package closemap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareCloser exposes the error-less close shape
type bareCloser struct {
	closed int
}

func (c *bareCloser) Close() {
	c.closed++
}

func TestDispatch_NativeCloser(t *testing.T) {
	t.Run("Close() error", func(t *testing.T) {
		var log []string
		res := &fakeResource{name: "r", log: &log}

		m := FromEntries([]Entry{{Key: "r", Value: res}})
		require.NoError(t, m.Close())
		assert.Equal(t, []string{"r"}, log)
	})

	t.Run("bare Close()", func(t *testing.T) {
		res := &bareCloser{}

		m := FromEntries([]Entry{{Key: "r", Value: res}})
		require.NoError(t, m.Close())
		assert.Equal(t, 1, res.closed)
	})

	t.Run("CloserFunc adapter", func(t *testing.T) {
		calls := 0
		m := FromEntries([]Entry{
			{Key: "fn", Value: CloserFunc(func() error {
				calls++
				return nil
			})},
		})
		require.NoError(t, m.Close())
		assert.Equal(t, 1, calls)
	})
}

func TestDispatch_FnAnnotation(t *testing.T) {
	t.Run("true payload with func() error thunk", func(t *testing.T) {
		calls := 0
		thunk := func() error {
			calls++
			return nil
		}

		m := FromEntries([]Entry{
			{Key: "t", Value: Annotate(thunk, NewAnnotations(Setting(TagFn, any(true))))},
		})
		require.NoError(t, m.Close())
		assert.Equal(t, 1, calls)
	})

	t.Run("true payload with bare thunk", func(t *testing.T) {
		calls := 0
		thunk := func() {
			calls++
		}

		m := FromEntries([]Entry{
			{Key: "t", Value: Annotate(thunk, NewAnnotations(Setting(TagFn, any(true))))},
		})
		require.NoError(t, m.Close())
		assert.Equal(t, 1, calls)
	})

	t.Run("false payload is a no-op", func(t *testing.T) {
		calls := 0
		thunk := func() error {
			calls++
			return nil
		}

		m := FromEntries([]Entry{
			{Key: "t", Value: Annotate(thunk, NewAnnotations(Setting(TagFn, any(false))))},
		})
		require.NoError(t, m.Close())
		assert.Zero(t, calls)
	})

	t.Run("procedure payload receives the value", func(t *testing.T) {
		type legacy struct {
			shutdowns int
		}
		svc := &legacy{}

		proc := func(v any) error {
			v.(*legacy).shutdowns++
			return nil
		}

		m := FromEntries([]Entry{
			{Key: "svc", Value: Annotate(svc, NewAnnotations(Setting(TagFn, any(proc))))},
		})
		require.NoError(t, m.Close())
		assert.Equal(t, 1, svc.shutdowns)
	})

	t.Run("sequence of procedures runs in order", func(t *testing.T) {
		var ran []string
		procs := []func(any) error{
			func(any) error { ran = append(ran, "first"); return nil },
			func(any) error { ran = append(ran, "second"); return nil },
		}

		m := FromEntries([]Entry{
			{Key: "v", Value: Annotate("resource", NewAnnotations(Setting(TagFn, any(procs))))},
		})
		require.NoError(t, m.Close())
		assert.Equal(t, []string{"first", "second"}, ran)
	})

	t.Run("unsupported payload shape", func(t *testing.T) {
		m := FromEntries([]Entry{
			{Key: "v", Value: Annotate("resource", NewAnnotations(Setting(TagFn, any(42))))},
		})

		err := m.Close()
		require.Error(t, err)

		var uerr *UnsupportedCloseTargetError
		assert.ErrorAs(t, err, &uerr)
	})

	t.Run("true payload on a non-callable value", func(t *testing.T) {
		m := FromEntries([]Entry{
			{Key: "v", Value: Annotate("resource", NewAnnotations(Setting(TagFn, any(true))))},
		})

		var uerr *UnsupportedCloseTargetError
		assert.ErrorAs(t, m.Close(), &uerr)
	})
}

func TestDispatch_OpaqueValuesUntouched(t *testing.T) {
	m := FromEntries([]Entry{
		{Key: "n", Value: 42},
		{Key: "s", Value: "hello"},
		{Key: "f", Value: 3.14},
		{Key: "nil", Value: nil},
	})
	require.NoError(t, m.Close())
}

func TestDispatch_FailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	m := FromEntries([]Entry{
		{Key: "r", Value: &fakeResource{name: "r", log: &[]string{}, err: boom}},
	})
	assert.ErrorIs(t, m.Close(), boom)
}
