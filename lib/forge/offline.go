// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"github.com/handforge-project/handforge/lib/mesh"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/scene"
)

// OfflineAssembly builds the complete device from primitive geometry
// without touching the compiler: the cuff, splint, and gauntlet are
// perforated arc shells, the remaining parts simple solids. The result
// is coarser than a compiled build but dimensionally faithful, which is
// enough for previews and for exporting when no engine is installed.
func OfflineAssembly(set *params.Set, layout *scene.Layout) *scene.Node {
	scale := float32(set.Resolve("scale").Number)
	if scale <= 0 {
		scale = 1
	}
	wristWidth := float32(set.Resolve("wrist_width").Number)
	palmWidth := float32(set.Resolve("palm_width").Number)
	palmLength := float32(set.Resolve("palm_length").Number)
	knuckleHeight := float32(set.Resolve("knuckle_height").Number)
	gauntletLength := float32(set.Resolve("gauntlet_length").Number)
	padding := float32(set.Resolve("padding_thickness").Number)
	pins := int(set.Resolve("tensioner_pins").Number)
	if pins < 1 {
		pins = 1
	}

	cuffInner := wristWidth/2 + padding
	const cuffThickness = 3

	parts := map[string]*mesh.Mesh{
		scene.PartCuff: mesh.Cuff(mesh.CuffSpec{
			InnerRadius:   cuffInner,
			Length:        gauntletLength + 30,
			ArcDegrees:    200,
			Thickness:     cuffThickness,
			GridU:         40,
			GridV:         60,
			HoleEveryN:    5,
			HoleSizeCells: 2,
		}),
		scene.PartFinger: mesh.Cuff(mesh.CuffSpec{
			InnerRadius:   10,
			Length:        55,
			ArcDegrees:    220,
			Thickness:     2.2,
			GridU:         28,
			GridV:         48,
			HoleEveryN:    4,
			HoleSizeCells: 1,
			TaperRatio:    0.2,
		}),
		scene.PartGauntlet: mesh.Cuff(mesh.CuffSpec{
			InnerRadius:   cuffInner + 12,
			Length:        gauntletLength,
			ArcDegrees:    220,
			Thickness:     3,
			GridU:         36,
			GridV:         56,
			HoleEveryN:    5,
			HoleSizeCells: 2,
		}),
		scene.PartProximalFinger: mesh.Cuff(mesh.CuffSpec{
			InnerRadius:   11,
			Length:        30,
			ArcDegrees:    230,
			Thickness:     2.5,
			GridU:         20,
			GridV:         36,
			HoleEveryN:    3,
			HoleSizeCells: 1,
			TaperRatio:    0.1,
		}),
		scene.PartPalm:      mesh.Box(palmWidth, palmLength, knuckleHeight),
		scene.PartPins:      tensionerPins(pins),
		scene.PartTensioner: mesh.Box(18, 8, 30),
		scene.PartFingerTip: mesh.Box(16, 10, 12),
	}
	if set.Resolve("thumb").Bool {
		parts[scene.PartProximalThumb] = mesh.Cuff(mesh.CuffSpec{
			InnerRadius:   13,
			Length:        25,
			ArcDegrees:    240,
			Thickness:     2.5,
			GridU:         18,
			GridV:         34,
			HoleEveryN:    3,
			HoleSizeCells: 1,
			TaperRatio:    0.1,
		})
	}

	if scale != 1 {
		scaling := mesh.Scale(scale, scale, scale)
		for _, m := range parts {
			m.Transform(scaling)
		}
	}

	return scene.BuildAssembly(parts, layout, scene.AssemblyOptions{
		LeftHand:      set.Resolve("left_hand").Bool,
		FingerOffsetX: (cuffInner + cuffThickness + 35) * scale,
	})
}

// tensionerPins places strain-relief pins in a row along X, spaced at
// twice their diameter.
func tensionerPins(count int) *mesh.Mesh {
	const radius, height, spacing = 2.5, 12, 10
	m := &mesh.Mesh{}
	start := -float32(count-1) * spacing / 2
	for i := 0; i < count; i++ {
		pin := mesh.Cylinder(radius, height, 24)
		pin.Transform(mesh.Translate(start+float32(i)*spacing, 0, 0))
		m.Append(pin)
	}
	return m
}
