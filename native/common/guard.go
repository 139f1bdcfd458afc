package common

import "errors"

// ErrModulePaused is returned by Guard when a module's mutations are
// administratively halted.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutations against a paused module. A nil view or empty module
// name means no pause policy applies.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
