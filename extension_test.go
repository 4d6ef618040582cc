package closemap

import (
	"errors"
	"testing"
)

// recordingExtension traces close lifecycle events
type recordingExtension struct {
	BaseExtension
	order   int
	log     *[]string
	handled bool
}

func newRecordingExtension(name string, order int, log *[]string) *recordingExtension {
	return &recordingExtension{
		BaseExtension: NewBaseExtension(name),
		order:         order,
		log:           log,
	}
}

func (e *recordingExtension) Order() int {
	return e.order
}

func (e *recordingExtension) WrapClose(next func() error, m *Map) error {
	*e.log = append(*e.log, e.Name()+":start")
	err := next()
	*e.log = append(*e.log, e.Name()+":end")
	return err
}

func (e *recordingExtension) OnCloseError(err *CloseError) bool {
	*e.log = append(*e.log, e.Name()+":swallowed:"+err.Path)
	return e.handled
}

func TestExtension_WrapOrder(t *testing.T) {
	var log []string

	m := FromEntries([]Entry{{Key: "a", Value: 1}},
		WithExtension(newRecordingExtension("second", 20, &log)),
		WithExtension(newRecordingExtension("first", 10, &log)),
	)

	if err := m.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expected := []string{"first:start", "second:start", "second:end", "first:end"}
	if len(log) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, log)
	}
	for i, v := range expected {
		if log[i] != v {
			t.Fatalf("expected %v, got %v", expected, log)
		}
	}
}

func TestExtension_ObservesSwallowedErrors(t *testing.T) {
	var log []string

	m := FromEntries([]Entry{
		{Key: "r", Value: &fakeResource{name: "r", log: &[]string{}, err: errors.New("boom")}},
	},
		WithTag(TagSwallow, true),
		WithExtension(newRecordingExtension("obs", 10, &log)),
	)

	if err := m.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	found := false
	for _, v := range log {
		if v == "obs:swallowed:r" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the swallowed error on the side channel, got %v", log)
	}
}

func TestExtension_HandledErrorStopsLaterExtensions(t *testing.T) {
	var log []string

	first := newRecordingExtension("first", 10, &log)
	first.handled = true
	second := newRecordingExtension("second", 20, &log)

	m := FromEntries([]Entry{
		{Key: "r", Value: &fakeResource{name: "r", log: &[]string{}, err: errors.New("boom")}},
	},
		WithTag(TagSwallow, true),
		WithExtension(first),
		WithExtension(second),
	)

	if err := m.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, v := range log {
		if v == "second:swallowed:r" {
			t.Errorf("expected the handled error to stop at first, got %v", log)
		}
	}
}

func TestExtension_DerivedContainerKeepsSourceChainIntact(t *testing.T) {
	var log []string

	orig := FromEntries([]Entry{{Key: "a", Value: 1}},
		WithExtension(newRecordingExtension("a", 10, &log)),
		WithExtension(newRecordingExtension("b", 20, &log)),
		WithExtension(newRecordingExtension("c", 30, &log)),
	)

	derived, err := WrapAny(orig, WithExtension(newRecordingExtension("z", 1, &log)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if derived == orig {
		t.Fatal("expected a distinct container")
	}

	if err := orig.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expected := []string{"a:start", "b:start", "c:start", "c:end", "b:end", "a:end"}
	if len(log) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, log)
	}
	for i, v := range expected {
		if log[i] != v {
			t.Fatalf("expected %v, got %v", expected, log)
		}
	}
}

// failingInitExtension refuses registration
type failingInitExtension struct {
	BaseExtension
}

func (e *failingInitExtension) Init(m *Map) error {
	return errors.New("init refused")
}

func TestMap_UseExtension(t *testing.T) {
	var log []string

	m, err := New().UseExtension(newRecordingExtension("obs", 10, &log))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(log) != 2 || log[0] != "obs:start" || log[1] != "obs:end" {
		t.Fatalf("expected the extension to wrap close, got %v", log)
	}

	if _, err := m.UseExtension(&failingInitExtension{BaseExtension: NewBaseExtension("bad")}); err == nil {
		t.Fatal("expected the init failure to surface")
	}

	log = log[:0]
	if err := m.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(log) != 2 || log[0] != "obs:start" || log[1] != "obs:end" {
		t.Errorf("expected the failed registration to leave the receiver untouched, got %v", log)
	}
}

func TestExtension_ErrorPassesThroughWrap(t *testing.T) {
	var log []string
	boom := errors.New("boom")

	m := FromEntries([]Entry{
		{Key: "r", Value: &fakeResource{name: "r", log: &[]string{}, err: boom}},
	},
		WithExtension(newRecordingExtension("obs", 10, &log)),
	)

	if err := m.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected boom through the extension chain, got %v", err)
	}

	if len(log) != 2 || log[0] != "obs:start" || log[1] != "obs:end" {
		t.Errorf("expected wrap to run around a failing close, got %v", log)
	}
}
