package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_OpenItem(t *testing.T) {
	ui := &fakeUI{}
	d := NewDispatcher(ui, discardLogger())

	d.Dispatch(ToolInvocation{
		Name:   "search_items",
		Result: `{"action":"open_item","id":"42","kind":"report"}`,
	})

	assert.Equal(t, []string{"report:42"}, ui.opened)
}

func TestDispatcher_Navigate(t *testing.T) {
	ui := &fakeUI{}
	d := NewDispatcher(ui, discardLogger())

	d.Dispatch(ToolInvocation{Result: `{"action":"navigate","target":"settings"}`})

	assert.Equal(t, []string{"settings"}, ui.navigated)
}

func TestDispatcher_OpenURL(t *testing.T) {
	ui := &fakeUI{}
	d := NewDispatcher(ui, discardLogger())

	d.Dispatch(ToolInvocation{Result: `{"action":"open_url","url":"https://example.com"}`})

	assert.Equal(t, []string{"https://example.com"}, ui.urls)
}

func TestDispatcher_IgnoresPlainToolOutput(t *testing.T) {
	ui := &fakeUI{}
	d := NewDispatcher(ui, discardLogger())

	for _, result := range []string{
		"3 rows matched",
		"",
		`{"rows":3,"query":"budget"}`,
		`{"action":""}`,
		`[1,2,3]`,
	} {
		d.Dispatch(ToolInvocation{Name: "query", Result: result})
	}

	assert.Empty(t, ui.opened)
	assert.Empty(t, ui.navigated)
	assert.Empty(t, ui.urls)
}

func TestDispatcher_IgnoresUnknownAction(t *testing.T) {
	ui := &fakeUI{}
	d := NewDispatcher(ui, discardLogger())

	d.Dispatch(ToolInvocation{Result: `{"action":"self_destruct"}`})

	assert.Empty(t, ui.opened)
	assert.Empty(t, ui.navigated)
	assert.Empty(t, ui.urls)
}

func TestDispatcher_HandlerErrorDoesNotPanic(t *testing.T) {
	ui := &fakeUI{err: errors.New("window gone")}
	d := NewDispatcher(ui, discardLogger())

	d.Dispatch(ToolInvocation{Result: `{"action":"navigate","target":"nowhere"}`})

	assert.Equal(t, []string{"nowhere"}, ui.navigated)
}

func TestDispatcher_NilCollaborator(t *testing.T) {
	d := NewDispatcher(nil, discardLogger())

	// Must not panic when no UI is wired.
	d.Dispatch(ToolInvocation{Result: `{"action":"open_item","id":"1"}`})
}
