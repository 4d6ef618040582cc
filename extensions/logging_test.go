package extensions

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	closemap "github.com/closeable-fn/closemap-go"
)

func newBufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
}

func TestLoggingExtension_SuccessfulClose(t *testing.T) {
	var buf bytes.Buffer

	m := closemap.FromEntries([]closemap.Entry{
		{Key: "a", Value: 1},
	}, closemap.WithExtension(NewLoggingExtension(newBufferLogger(&buf))))

	require.NoError(t, m.Close())

	out := buf.String()
	assert.Contains(t, out, "close starting")
	assert.Contains(t, out, "close completed")
}

func TestLoggingExtension_SwallowedErrors(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")

	m := closemap.FromEntries([]closemap.Entry{
		{Key: "r", Value: closemap.CloserFunc(func() error { return boom })},
	},
		closemap.WithTag(closemap.TagSwallow, true),
		closemap.WithExtension(NewLoggingExtension(newBufferLogger(&buf))),
	)

	require.NoError(t, m.Close())

	out := buf.String()
	assert.Contains(t, out, "close error swallowed")
	assert.Contains(t, out, "boom")
}

func TestLoggingExtension_FailedClose(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")

	m := closemap.FromEntries([]closemap.Entry{
		{Key: "r", Value: closemap.CloserFunc(func() error { return boom })},
	}, closemap.WithExtension(NewLoggingExtension(newBufferLogger(&buf))))

	require.Error(t, m.Close())
	assert.Contains(t, buf.String(), "close failed")
}
