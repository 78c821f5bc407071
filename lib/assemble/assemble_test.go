// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package assemble

import (
	"math"
	"strings"
	"testing"

	"github.com/handforge-project/handforge/lib/params"
)

var testOpts = Options{SerialFallback: "2026-08-28"}

func TestAssemble_Deterministic(t *testing.T) {
	set := params.NewSet()
	set.Put("palm_width", params.NumberValue(70))
	set.Put("left_hand", params.BoolValue(true))
	set.Put("label", params.TextValue("Ada"))

	for _, target := range []Target{TargetFull, TargetGauntlet, TargetPalm} {
		first := Assemble(set, target, testOpts)
		second := Assemble(set, target, testOpts)
		if first != second {
			t.Errorf("target %v: two assemblies of equal input differ", target)
		}
	}
}

func TestAssemble_ScheduleOrder(t *testing.T) {
	set := params.NewSet()
	set.Put("palm_width", params.NumberValue(70))
	set.Put("palm_length", params.NumberValue(100))

	text := Assemble(set, TargetFull, testOpts)
	if !strings.Contains(text, "palm_width = 70;\n") {
		t.Errorf("missing palm_width assignment:\n%s", text)
	}
	if !strings.Contains(text, "palm_length = 100;\n") {
		t.Errorf("missing palm_length assignment:\n%s", text)
	}
	// Schedule order, not insertion order: scale precedes palm_width.
	if strings.Index(text, "scale = ") > strings.Index(text, "palm_width = ") {
		t.Error("scale must be emitted before palm_width")
	}
}

func TestAssemble_OffScheduleParametersNeverAppear(t *testing.T) {
	set := params.NewSet()
	set.Put("palm_width", params.NumberValue(70))
	set.Put("viewer_zoom", params.NumberValue(2)) // not in any schedule

	// The gauntlet schedule has no palm_width either.
	text := Assemble(set, TargetGauntlet, testOpts)
	if strings.Contains(text, "palm_width") {
		t.Error("palm_width is not in the gauntlet schedule and must not appear")
	}
	if strings.Contains(text, "viewer_zoom") {
		t.Error("unknown parameters must never be emitted")
	}
}

func TestAssemble_EachNameAtMostOnce(t *testing.T) {
	set := params.NewSet()
	set.Put("scale", params.NumberValue(1.5))
	text := Assemble(set, TargetFull, testOpts)
	if strings.Count(text, "scale = ") != 1 {
		t.Errorf("scale must appear exactly once:\n%s", text)
	}
}

func TestAssemble_LiteralFormatting(t *testing.T) {
	set := params.NewSet()
	set.Put("left_hand", params.BoolValue(true))
	set.Put("thumb", params.BoolValue(false))
	set.Put("scale", params.NumberValue(1.25))
	set.Put("label", params.TextValue(`Ada "the" Great and more`))

	text := Assemble(set, TargetFull, testOpts)
	checks := []string{
		"left_hand = true;",
		"thumb = false;",
		"scale = 1.25;",
		// Truncated to 15 characters, then quote-escaped.
		`label = "Ada \"the\" Grea";`,
	}
	for _, want := range checks {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestAssemble_SerialFallsBackToSuppliedDate(t *testing.T) {
	text := Assemble(params.NewSet(), TargetFull, testOpts)
	if !strings.Contains(text, `serial = "2026-08-28";`) {
		t.Errorf("empty serial should use the caller-supplied fallback:\n%s", text)
	}

	set := params.NewSet()
	set.Put("serial", params.TextValue("HF-0042"))
	text = Assemble(set, TargetFull, testOpts)
	if !strings.Contains(text, `serial = "HF-0042";`) {
		t.Errorf("explicit serial should win over the fallback:\n%s", text)
	}
}

func TestAssemble_PreludeAndGenerator(t *testing.T) {
	text := Assemble(params.NewSet(), TargetFull, testOpts)
	if !strings.HasPrefix(text, "include <hand_core.scad>\n") {
		t.Errorf("program must start with the core include:\n%s", text)
	}
	guard := strings.Index(text, "auto_render = false;")
	firstAssign := strings.Index(text, "scale = ")
	if guard == -1 || firstAssign == -1 || guard > firstAssign {
		t.Error("auto_render guard must precede parameter assignments")
	}
	if !strings.Contains(text, "assembled_hand();\n") {
		t.Error("full target must call assembled_hand()")
	}

	text = Assemble(params.NewSet(), TargetPalm, testOpts)
	if !strings.Contains(text, "palm_mount();\n") {
		t.Error("palm target must call palm_mount()")
	}
	if strings.Contains(text, "gauntlet();") {
		t.Error("palm target must not call the gauntlet generator")
	}
}

func TestAssemble_GauntletJigConstants(t *testing.T) {
	text := Assemble(params.NewSet(), TargetGauntlet, testOpts)
	if !strings.Contains(text, "d = 3.2 / scale") {
		t.Errorf("jig hole diameter must be 3.2 / scale:\n%s", text)
	}
	if !strings.Contains(text, "gauntlet();\n") {
		t.Error("gauntlet target must call gauntlet()")
	}

	// Only the gauntlet target carries the jig.
	if strings.Contains(Assemble(params.NewSet(), TargetFull, testOpts), "3.2 / scale") {
		t.Error("full target must not include the drill jig")
	}
}

func TestAssignments_NonFiniteRendersAsDefault(t *testing.T) {
	// Resolve maps non-finite input to the field default before
	// formatting, so the emitted literal is the default, never NaN.
	set := params.NewSet()
	set.Put("palm_width", params.NumberValue(math.NaN()))
	for _, a := range Assignments(set, TargetFull, testOpts) {
		if a.Name == "palm_width" && a.Literal != "65" {
			t.Errorf("palm_width literal = %q, want 65", a.Literal)
		}
		if strings.Contains(a.Literal, "NaN") {
			t.Errorf("NaN leaked into literal %q", a.Literal)
		}
	}
}
