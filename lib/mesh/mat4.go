// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package mesh

import "math"

// Mat4 is a row-major 4×4 affine transform. The fourth row is assumed
// to be (0,0,0,1); TransformPoint ignores it.
type Mat4 [16]float32

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a * b (apply b first, then a).
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// TransformPoint applies the transform to a point (w = 1).
func (a Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		a[0]*p.X + a[1]*p.Y + a[2]*p.Z + a[3],
		a[4]*p.X + a[5]*p.Y + a[6]*p.Z + a[7],
		a[8]*p.X + a[9]*p.Y + a[10]*p.Z + a[11],
	}
}

// Translate returns a translation transform.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[3], m[7], m[11] = x, y, z
	return m
}

// Scale returns a (possibly non-uniform) scale transform. Negative
// factors mirror; mesh transforms recompute normals afterward so the
// handedness flip is absorbed.
func Scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotateZ returns a rotation about the Z axis by degrees.
func RotateZ(degrees float32) Mat4 {
	rad := float64(degrees) * math.Pi / 180
	sin, cos := math.Sincos(rad)
	m := Identity()
	m[0] = float32(cos)
	m[1] = float32(-sin)
	m[4] = float32(sin)
	m[5] = float32(cos)
	return m
}

// MirrorY returns a reflection across the XZ plane (negates Y). Used
// for left-hand builds.
func MirrorY() Mat4 {
	return Scale(1, -1, 1)
}
