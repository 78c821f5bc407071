// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package mesh provides the triangle-soup mesh model shared by the
// codec, the scene triangulator, and the export path.
//
// A Mesh is deliberately a soup: an ordered slice of independent
// triangles with no shared-vertex topology. The STL interchange format
// cannot express indexing, so maintaining an indexed representation
// here would only be thrown away at the boundary.
package mesh

import "math"

// Vec3 is a point or direction in model space. Coordinates are float32
// to match the binary STL wire format exactly.
type Vec3 struct {
	X, Y, Z float32
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X)*float64(v.X) +
		float64(v.Y)*float64(v.Y) + float64(v.Z)*float64(v.Z)))
}

// Normalized returns v scaled to unit length. A zero vector normalizes
// to the zero vector (degenerate triangles produce a zero normal, which
// downstream consumers tolerate).
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{}
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

// Triangle is one facet: three vertices in consistent winding plus a
// normal. The decode path carries whatever normal the source buffer
// declared (or zero for ASCII input until RecomputeNormals runs); the
// export path always recomputes normals from the winding and never
// trusts a stored value.
type Triangle struct {
	A, B, C Vec3
	Normal  Vec3
}

// FaceNormal returns the unit normal implied by the winding A→B→C,
// computed as normalize((B-A) × (C-A)).
func (t Triangle) FaceNormal() Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Normalized()
}

// Mesh is a triangle soup. Triangle order is preserved by every
// operation in this module; encoders rely on that for reproducible
// output.
type Mesh struct {
	Triangles []Triangle
}

// Len returns the number of triangles.
func (m *Mesh) Len() int { return len(m.Triangles) }

// Add appends a triangle built from three vertices, computing its
// normal from the winding.
func (m *Mesh) Add(a, b, c Vec3) {
	t := Triangle{A: a, B: b, C: c}
	t.Normal = t.FaceNormal()
	m.Triangles = append(m.Triangles, t)
}

// Append appends all triangles of other, preserving order.
func (m *Mesh) Append(other *Mesh) {
	m.Triangles = append(m.Triangles, other.Triangles...)
}

// RecomputeNormals overwrites every triangle's normal with the value
// implied by its current winding. Run this after decoding ASCII input
// (which carries no usable normals) and after any transform that may
// have flipped handedness.
func (m *Mesh) RecomputeNormals() {
	for i := range m.Triangles {
		m.Triangles[i].Normal = m.Triangles[i].FaceNormal()
	}
}

// Transform applies mat to every vertex in place and recomputes the
// normals from the transformed winding. Mirroring and non-uniform
// scaling are therefore safe: the normal always agrees with the final
// vertex order.
func (m *Mesh) Transform(mat Mat4) {
	for i := range m.Triangles {
		t := &m.Triangles[i]
		t.A = mat.TransformPoint(t.A)
		t.B = mat.TransformPoint(t.B)
		t.C = mat.TransformPoint(t.C)
		t.Normal = t.FaceNormal()
	}
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	copy(out.Triangles, m.Triangles)
	return out
}
