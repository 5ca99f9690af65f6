// Package keys maps the configured key bindings onto logical actions for
// the interactive UI.
package keys

import "github.com/fankserver/voicepipe/internal/config"

// Action is a logical command the key loop can dispatch.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionHelp
	ActionMicToggleDisabled
	ActionMicCycleMode
	ActionCallbackToggleWrite
	ActionCallbackToggleTypewriter
	ActionOpenConfig
	ActionOpenLogs
)

// Table resolves a raw key string to an Action per the configured bindings.
type Table struct {
	byKey map[string]Action
}

// NewTable builds a lookup table from the configured bindings. Later
// duplicate bindings for the same key silently win, matching a simple
// last-write config merge; callers are responsible for warning about
// genuine conflicts at config-validation time.
func NewTable(bindings config.KeyBindings) Table {
	t := Table{byKey: make(map[string]Action, 8)}
	t.bind(bindings.Quit, ActionQuit)
	t.bind(bindings.Help, ActionHelp)
	t.bind(bindings.MicToggleDisabled, ActionMicToggleDisabled)
	t.bind(bindings.MicCycleMode, ActionMicCycleMode)
	t.bind(bindings.CallbackToggleWrite, ActionCallbackToggleWrite)
	t.bind(bindings.CallbackToggleTypewriter, ActionCallbackToggleTypewriter)
	t.bind(bindings.OpenConfig, ActionOpenConfig)
	t.bind(bindings.OpenLogs, ActionOpenLogs)
	return t
}

func (t *Table) bind(key string, action Action) {
	if key == "" {
		return
	}
	t.byKey[key] = action
}

// Resolve returns the action bound to key, or ActionNone if it is unbound.
func (t Table) Resolve(key string) Action {
	if a, ok := t.byKey[key]; ok {
		return a
	}
	return ActionNone
}
