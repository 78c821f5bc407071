// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Placement overrides where one part sits in the assembly. When Copies
// is non-empty the part is instanced once per copy and the top-level
// Translate/RotateZDeg are ignored.
type Placement struct {
	Translate  [3]float32 `json:"translate"`
	RotateZDeg float32    `json:"rotate_deg_z"`
	Copies     []Copy     `json:"copies,omitempty"`
}

// Copy is one instance of a multi-copy placement.
type Copy struct {
	Translate  [3]float32 `json:"translate"`
	RotateZDeg float32    `json:"rotate_deg_z"`
}

// Layout maps part names to placement overrides. A nil Layout means
// every part uses its built-in default placement.
type Layout struct {
	Placements map[string]Placement `json:"placements"`
}

// LoadLayout parses a layout document. Comments and trailing commas
// are tolerated: layout files are hand-tuned.
func LoadLayout(data []byte) (*Layout, error) {
	var layout Layout
	if err := json.Unmarshal(jsonc.ToJSON(data), &layout); err != nil {
		return nil, fmt.Errorf("scene: parsing layout (%d bytes): %w", len(data), err)
	}
	return &layout, nil
}

// placement returns the override for name, if any.
func (l *Layout) placement(name string) (Placement, bool) {
	if l == nil || l.Placements == nil {
		return Placement{}, false
	}
	p, ok := l.Placements[name]
	return p, ok
}
