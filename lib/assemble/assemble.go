// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package assemble translates a parameter set into the textual
// solid-modeling program fed to the geometry compiler.
//
// Assembly is deterministic: variable order follows a fixed canonical
// schedule per build target, literal formatting follows fixed rules,
// and two calls with equal inputs produce byte-identical text. The
// compile cache and the test suite both rely on that.
package assemble

import (
	"math"
	"strconv"
	"strings"

	"github.com/handforge-project/handforge/lib/params"
)

// Target selects which part of the device the program builds.
type Target int

const (
	// TargetFull builds the complete assembled hand.
	TargetFull Target = iota
	// TargetGauntlet builds only the forearm gauntlet.
	TargetGauntlet
	// TargetPalm builds only the palm mount.
	TargetPalm
)

// String returns the target name used in filenames and the CLI.
func (t Target) String() string {
	switch t {
	case TargetGauntlet:
		return "gauntlet"
	case TargetPalm:
		return "palm"
	default:
		return "full"
	}
}

// ParseTarget parses a target name as accepted on the command line.
func ParseTarget(name string) (Target, bool) {
	switch name {
	case "full", "":
		return TargetFull, true
	case "gauntlet":
		return TargetGauntlet, true
	case "palm":
		return TargetPalm, true
	default:
		return TargetFull, false
	}
}

// Manifest is the fixed, ordered list of auxiliary source modules the
// emitted include lines depend on. The compiler session preloads these
// into its private filesystem before the first compile.
var Manifest = []string{
	"hand_core.scad",
	"gauntlet.scad",
	"palm.scad",
	"fingers.scad",
	"pins.scad",
	"text_engrave.scad",
}

// FontAssets are optional font files for the text-engraving
// primitives. Loading them is best-effort; engraving degrades to the
// compiler's built-in font when absent.
var FontAssets = []string{
	"engrave.ttf",
}

// includes lists the modules each target pulls in, in emission order.
func includes(target Target) []string {
	switch target {
	case TargetGauntlet:
		return []string{"hand_core.scad", "gauntlet.scad", "text_engrave.scad"}
	case TargetPalm:
		return []string{"hand_core.scad", "palm.scad", "fingers.scad", "text_engrave.scad"}
	default:
		return Manifest
	}
}

// schedule is the canonical emission order of parameter assignments
// for each target. A parameter absent from the schedule is never
// emitted, whatever the input set contains.
func schedule(target Target) []string {
	switch target {
	case TargetGauntlet:
		return []string{
			"scale", "left_hand", "wrist_width", "gauntlet_length",
			"padding_thickness", "label", "serial",
		}
	case TargetPalm:
		return []string{
			"scale", "left_hand", "palm_width", "palm_length",
			"wrist_width", "knuckle_height", "thumb", "label", "serial",
		}
	default:
		return []string{
			"scale", "left_hand", "palm_width", "palm_length",
			"wrist_width", "knuckle_height", "gauntlet_length",
			"padding_thickness", "thumb", "tensioner_pins",
			"label", "serial",
		}
	}
}

// generator returns the top-level generator call for a target.
func generator(target Target) string {
	switch target {
	case TargetGauntlet:
		return "gauntlet();"
	case TargetPalm:
		return "palm_mount();"
	default:
		return "assembled_hand();"
	}
}

// Options carries caller-supplied assembly context.
type Options struct {
	// SerialFallback substitutes for an empty serial parameter,
	// conventionally today's date formatted YYYY-MM-DD. The caller
	// supplies it so assembly itself stays a pure function.
	SerialFallback string
}

// Assignment is one emitted "name = literal;" pair.
type Assignment struct {
	Name    string
	Literal string
}

// Assignments derives the ordered assignment list for a target from a
// parameter set: schedule order, normalized values, formatted
// literals.
func Assignments(set *params.Set, target Target, opts Options) []Assignment {
	names := schedule(target)
	out := make([]Assignment, 0, len(names))
	for _, name := range names {
		field, ok := params.FieldByName(name)
		if !ok {
			continue
		}
		v := set.Resolve(name)
		var literal string
		switch field.Kind {
		case params.KindBool:
			literal = strconv.FormatBool(v.Bool)
		case params.KindNumber:
			literal = formatNumber(v.Number)
		case params.KindText:
			text := v.Text
			if text == "" && name == "serial" {
				text = opts.SerialFallback
			}
			literal = formatText(text)
		}
		out = append(out, Assignment{Name: name, Literal: literal})
	}
	return out
}

// Assemble produces the complete program text for a target: include
// lines, the auto-render guard, the assignment list, the generator
// call, and any target-specific supplementary geometry.
func Assemble(set *params.Set, target Target, opts Options) string {
	var b strings.Builder
	for _, module := range includes(target) {
		b.WriteString("include <")
		b.WriteString(module)
		b.WriteString(">\n")
	}
	// The included modules render themselves when opened standalone
	// in an editor; the guard keeps this program the sole source of
	// geometry.
	b.WriteString("auto_render = false;\n")
	for _, a := range Assignments(set, target, opts) {
		b.WriteString(a.Name)
		b.WriteString(" = ")
		b.WriteString(a.Literal)
		b.WriteString(";\n")
	}
	b.WriteString(generator(target))
	b.WriteByte('\n')
	if target == TargetGauntlet {
		writeTensionerJig(&b)
	}
	return b.String()
}

// writeTensionerJig emits the drill jig printed alongside the
// gauntlet. The hole diameter divides the 3.2 mm pin bore by the
// overall scale factor so the hole measures 3.2 mm after the compiler
// applies the global scale. The constants here are manufacturing
// dimensions; do not adjust them without re-validating printed fit.
func writeTensionerJig(b *strings.Builder) {
	b.WriteString("translate([0, -60, 0]) difference() {\n")
	b.WriteString("  cube([18, 18, 8], center = true);\n")
	b.WriteString("  cylinder(h = 10, d = 3.2 / scale, center = true, $fn = 48);\n")
	b.WriteString("}\n")
}

// formatNumber renders a number literal: shortest decimal form, with
// non-finite values rendered as 0 (the resolver normally replaces
// them with defaults before this point).
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatText renders a quoted string literal: truncated to MaxTextLen
// characters, then double quotes escaped.
func formatText(s string) string {
	runes := []rune(s)
	if len(runes) > params.MaxTextLen {
		s = string(runes[:params.MaxTextLen])
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
