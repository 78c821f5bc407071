// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"github.com/handforge-project/handforge/lib/mesh"
)

// Part names recognized by the assembly builder and the layout file.
const (
	PartCuff           = "cuff"
	PartFinger         = "finger"
	PartPalm           = "palm"
	PartGauntlet       = "gauntlet"
	PartPins           = "pins"
	PartTensioner      = "three_pin_tensioner"
	PartProximalFinger = "proximal_finger"
	PartProximalThumb  = "proximal_thumb"
	PartFingerTip      = "finger_tip"
)

// AssemblyOptions tunes the combined build.
type AssemblyOptions struct {
	// LeftHand mirrors the whole assembly about Y. Winding-dependent
	// normals stay correct because flattening recomputes them.
	LeftHand bool

	// FingerOffsetX positions the finger splint beside the cuff:
	// cuff inner radius + cuff thickness + 35 mm clearance. Zero
	// means "use the default cuff dimensions" (38 + 3 + 35).
	FingerOffsetX float32
}

// defaultPlacements are the stock positions of each part in the
// combined assembly, used when the layout file has no override.
// Proximal fingers are instanced four times across the knuckle line.
var defaultPlacements = map[string]Placement{
	PartPalm:      {},
	PartGauntlet:  {Translate: [3]float32{0, 0, -70}},
	PartPins:      {Translate: [3]float32{0, -35, 8}},
	PartTensioner: {Translate: [3]float32{0, -50, 8}},
	PartProximalFinger: {Copies: []Copy{
		{Translate: [3]float32{-22, 35, 10}},
		{Translate: [3]float32{-7, 35, 10}},
		{Translate: [3]float32{7, 35, 10}},
		{Translate: [3]float32{22, 35, 10}},
	}},
	PartProximalThumb: {Translate: [3]float32{-35, 15, 5}, RotateZDeg: -20},
	PartFingerTip:     {Translate: [3]float32{22, 55, 12}},
}

// BuildAssembly arranges per-part meshes into a combined scene: one
// direct child of the root per placed part instance group, so
// partitioned flattening yields one component per part. Layout
// overrides replace default placements per part; parts absent from the
// mesh map are skipped.
func BuildAssembly(parts map[string]*mesh.Mesh, layout *Layout, opts AssemblyOptions) *Node {
	root := NewNode("assembly")
	if opts.LeftHand {
		root.Transform = mesh.MirrorY()
	}

	fingerOffset := opts.FingerOffsetX
	if fingerOffset == 0 {
		fingerOffset = 38 + 3 + 35
	}

	place := func(name string, fallback Placement) {
		m, ok := parts[name]
		if !ok || m.Len() == 0 {
			return
		}
		p, overridden := layout.placement(name)
		if !overridden {
			p = fallback
		}
		group := NewNode(name)
		geometry := GeometryFromMesh(m)
		if len(p.Copies) > 0 {
			for _, c := range p.Copies {
				instance := NewNode(name)
				instance.Transform = placementTransform(c.Translate, c.RotateZDeg)
				instance.Geometry = geometry
				group.AddChild(instance)
			}
		} else {
			group.Transform = placementTransform(p.Translate, p.RotateZDeg)
			group.Geometry = geometry
		}
		root.AddChild(group)
	}

	place(PartCuff, Placement{})
	place(PartFinger, Placement{Translate: [3]float32{fingerOffset, 0, 0}})
	place(PartPalm, defaultPlacements[PartPalm])
	place(PartGauntlet, defaultPlacements[PartGauntlet])
	place(PartProximalFinger, defaultPlacements[PartProximalFinger])
	place(PartProximalThumb, defaultPlacements[PartProximalThumb])
	place(PartFingerTip, defaultPlacements[PartFingerTip])
	place(PartPins, defaultPlacements[PartPins])
	place(PartTensioner, defaultPlacements[PartTensioner])

	return root
}

// placementTransform builds the local transform for a placement:
// rotate about Z first, then translate.
func placementTransform(translate [3]float32, rotateZDeg float32) mesh.Mat4 {
	t := mesh.Translate(translate[0], translate[1], translate[2])
	if rotateZDeg != 0 {
		return t.Mul(mesh.RotateZ(rotateZDeg))
	}
	return t
}
