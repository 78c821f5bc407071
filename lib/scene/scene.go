// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package scene models the transformed part hierarchy assembled for
// preview and export, and flattens it back into world-space triangle
// soup.
//
// Flattening recomputes every accumulated world transform before
// reading any geometry, transforms vertices into world space, and
// derives each triangle's normal from the transformed winding. Stored
// normals are never trusted on this path: non-uniform scale and
// mirroring change handedness, and only the recomputed normal is
// guaranteed to agree with the final vertex order.
package scene

import (
	"strconv"

	"github.com/handforge-project/handforge/lib/mesh"
)

// Geometry is a leaf vertex buffer: positions plus an optional
// triangle index buffer. Without indices, consecutive position triples
// form triangles.
type Geometry struct {
	Positions []mesh.Vec3
	Indices   []uint32
}

// GeometryFromMesh converts a triangle soup into an unindexed
// geometry buffer.
func GeometryFromMesh(m *mesh.Mesh) *Geometry {
	g := &Geometry{Positions: make([]mesh.Vec3, 0, m.Len()*3)}
	for _, t := range m.Triangles {
		g.Positions = append(g.Positions, t.A, t.B, t.C)
	}
	return g
}

// Node is one scene element: a local transform relative to its parent,
// optional leaf geometry, and children.
type Node struct {
	Name      string
	Transform mesh.Mat4
	Geometry  *Geometry
	Children  []*Node

	world mesh.Mat4
}

// NewNode returns a named node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mesh.Identity()}
}

// AddChild appends child nodes and returns the receiver for chaining.
func (n *Node) AddChild(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// updateWorld recomputes accumulated world transforms for the whole
// subtree. A node's own transform is relative to its parent, so the
// full parent chain applies, not just the immediate transform.
func (n *Node) updateWorld(parent mesh.Mat4) {
	n.world = parent.Mul(n.Transform)
	for _, child := range n.Children {
		child.updateWorld(n.world)
	}
}

// collect appends the subtree's world-space triangles to out.
func (n *Node) collect(out *mesh.Mesh) {
	if g := n.Geometry; g != nil {
		emit := func(a, b, c mesh.Vec3) {
			out.Add(
				n.world.TransformPoint(a),
				n.world.TransformPoint(b),
				n.world.TransformPoint(c),
			)
		}
		if len(g.Indices) > 0 {
			for i := 0; i+2 < len(g.Indices); i += 3 {
				emit(g.Positions[g.Indices[i]], g.Positions[g.Indices[i+1]], g.Positions[g.Indices[i+2]])
			}
		} else {
			for i := 0; i+2 < len(g.Positions); i += 3 {
				emit(g.Positions[i], g.Positions[i+1], g.Positions[i+2])
			}
		}
	}
	for _, child := range n.Children {
		child.collect(out)
	}
}

// Flatten returns the scene's world-space triangle soup. Triangle
// normals are computed from the transformed winding.
func Flatten(root *Node) *mesh.Mesh {
	root.updateWorld(mesh.Identity())
	out := &mesh.Mesh{}
	root.collect(out)
	return out
}

// ComponentGroup is a named subset of the flattened scene used for
// partitioned export: one group per top-level part that contains
// geometry.
type ComponentGroup struct {
	Name string
	Mesh *mesh.Mesh
}

// FlattenPartitioned flattens the scene into one ComponentGroup per
// direct child of the root that contributes any triangles. Children
// with no geometry anywhere in their subtree are skipped. If no child
// yields triangles but the scene still has geometry (a flat scene
// attached straight to the root), a single synthetic "model" group
// holds the full flattened mesh — partitioned export never produces an
// empty archive when geometry exists.
func FlattenPartitioned(root *Node) []ComponentGroup {
	root.updateWorld(mesh.Identity())
	var groups []ComponentGroup
	for i, child := range root.Children {
		m := &mesh.Mesh{}
		child.collect(m)
		if m.Len() == 0 {
			continue
		}
		name := child.Name
		if name == "" {
			name = "part_" + strconv.Itoa(i)
		}
		groups = append(groups, ComponentGroup{Name: name, Mesh: m})
	}
	if len(groups) == 0 {
		full := Flatten(root)
		if full.Len() > 0 {
			groups = append(groups, ComponentGroup{Name: "model", Mesh: full})
		}
	}
	return groups
}
