package core

import (
	"encoding/json"
	"log/slog"
)

// Recognized side-effect action names.
const (
	ActionOpenItem = "open_item"
	ActionNavigate = "navigate"
	ActionOpenURL  = "open_url"
)

// UIActions is the external collaborator invoked for backend-issued
// client-side effects.
type UIActions interface {
	// OpenItem opens an item in a new tab.
	OpenItem(id, kind string) error

	// Navigate moves the surface to a named view.
	Navigate(target string) error

	// OpenURL opens an external URL.
	OpenURL(url string) error
}

// actionPayload is the side-effect shape sniffed out of tool results.
type actionPayload struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
	URL    string `json:"url"`
}

// Dispatcher inspects tool results for recognized side-effect shapes and
// invokes the corresponding collaborator call. This is the only place that
// sniffs result payloads; a payload that is not JSON, or JSON without an
// action field, is plain tool output meant for the model and is ignored.
type Dispatcher struct {
	ui  UIActions
	log *slog.Logger
}

// NewDispatcher creates a dispatcher for the given collaborator.
func NewDispatcher(ui UIActions, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{ui: ui, log: log}
}

// Dispatch consumes one tool invocation. Each recognized action triggers
// exactly one collaborator call.
func (d *Dispatcher) Dispatch(inv ToolInvocation) {
	var payload actionPayload
	if err := json.Unmarshal([]byte(inv.Result), &payload); err != nil {
		// Not an action.
		return
	}
	if payload.Action == "" {
		return
	}
	if d.ui == nil {
		d.log.Debug("no UI collaborator, dropping action", "action", payload.Action)
		return
	}

	var err error
	switch payload.Action {
	case ActionOpenItem:
		err = d.ui.OpenItem(payload.ID, payload.Kind)
	case ActionNavigate:
		err = d.ui.Navigate(payload.Target)
	case ActionOpenURL:
		err = d.ui.OpenURL(payload.URL)
	default:
		d.log.Debug("unrecognized action", "action", payload.Action, "tool", inv.Name)
		return
	}

	if err != nil {
		d.log.Warn("action failed", "action", payload.Action, "error", err)
	}
}
