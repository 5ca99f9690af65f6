// Package device enumerates audio input devices exposed by the host.
package device

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Enumerator lists capture-capable input devices for a malgo context.
type Enumerator struct {
	ctx *malgo.AllocatedContext
}

// New wraps an already-initialized malgo context.
func New(ctx *malgo.AllocatedContext) *Enumerator {
	return &Enumerator{ctx: ctx}
}

// List returns input device names in host enumeration order. A device whose
// name cannot be read is given a synthetic name Unknown-<index>.
func (e *Enumerator) List() ([]string, error) {
	infos, err := e.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("device: enumerate capture devices: %w", err)
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		name := info.Name()
		if name == "" {
			name = fmt.Sprintf("Unknown-%d", i)
		}
		names[i] = name
	}
	return names, nil
}
