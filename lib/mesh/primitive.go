// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package mesh

import "math"

// Box returns an axis-aligned solid box centered at the origin.
func Box(sizeX, sizeY, sizeZ float32) *Mesh {
	hx, hy, hz := sizeX/2, sizeY/2, sizeZ/2
	v := [8]Vec3{
		{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
		{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
	}
	m := &Mesh{}
	quad := func(a, b, c, d int) {
		m.Add(v[a], v[b], v[c])
		m.Add(v[a], v[c], v[d])
	}
	quad(0, 1, 2, 3) // bottom
	quad(4, 5, 6, 7) // top
	quad(0, 4, 5, 1) // -y
	quad(1, 5, 6, 2) // +x
	quad(2, 6, 7, 3) // +y
	quad(3, 7, 4, 0) // -x
	return m
}

// Cylinder returns a solid cylinder centered at the origin with its
// axis along Z.
func Cylinder(radius, height float32, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	h2 := height / 2
	m := &Mesh{}
	ring := func(i int) (float32, float32) {
		a := 2 * math.Pi * float64(i) / float64(segments)
		sin, cos := math.Sincos(a)
		return radius * float32(cos), radius * float32(sin)
	}
	top := Vec3{0, 0, h2}
	bottom := Vec3{0, 0, -h2}
	for i := 0; i < segments; i++ {
		x0, y0 := ring(i)
		x1, y1 := ring(i + 1)
		p00 := Vec3{x0, y0, -h2}
		p01 := Vec3{x0, y0, h2}
		p10 := Vec3{x1, y1, -h2}
		p11 := Vec3{x1, y1, h2}
		m.Add(p00, p10, p11)
		m.Add(p00, p11, p01)
		m.Add(Vec3{x0, y0, h2}, Vec3{x1, y1, h2}, top)
		m.Add(bottom, Vec3{x1, y1, -h2}, Vec3{x0, y0, -h2})
	}
	return m
}

// CuffSpec describes the parametric perforated cuff used for offline
// preview geometry. Dimensions are millimeters; the arc opens along
// +X so the wearer's forearm enters from the gap.
type CuffSpec struct {
	InnerRadius   float32
	Length        float32
	ArcDegrees    float32
	Thickness     float32
	GridU         int
	GridV         int
	HoleEveryN    int
	HoleSizeCells int
	TaperRatio    float32
}

// Cuff builds a cylindrical arc shell with optional rectangular
// perforations: inner and outer skins, walls around every hole, side
// walls along the open arc edges, and end caps that skip perforated
// cells so holes stay open through both faces.
func Cuff(spec CuffSpec) *Mesh {
	u := spec.GridU
	v := spec.GridV
	if u < 2 {
		u = 2
	}
	if v < 2 {
		v = 2
	}
	arc := float64(spec.ArcDegrees) * math.Pi / 180

	point := func(ui, vi int, radius float32) Vec3 {
		fu := float64(ui) / float64(u-1)
		fv := float64(vi) / float64(v-1)
		angle := (fv - 0.5) * arc
		r := float64(radius) * (1 - float64(spec.TaperRatio)*fu)
		sin, cos := math.Sincos(angle)
		return Vec3{
			float32(r * cos),
			float32(r * sin),
			float32(fu) * spec.Length,
		}
	}

	inner := make([][]Vec3, u)
	outer := make([][]Vec3, u)
	for i := 0; i < u; i++ {
		inner[i] = make([]Vec3, v)
		outer[i] = make([]Vec3, v)
		for j := 0; j < v; j++ {
			inner[i][j] = point(i, j, spec.InnerRadius)
			outer[i][j] = point(i, j, spec.InnerRadius+spec.Thickness)
		}
	}

	// Hole mask: true marks a quad cell carved out of both skins.
	hole := make([][]bool, u-1)
	for i := range hole {
		hole[i] = make([]bool, v-1)
	}
	if spec.HoleEveryN > 0 && spec.HoleSizeCells > 0 {
		for i := 0; i < u-1; i += spec.HoleEveryN {
			for j := 0; j < v-1; j += spec.HoleEveryN {
				for di := 0; di < spec.HoleSizeCells; di++ {
					for dj := 0; dj < spec.HoleSizeCells; dj++ {
						if i+di < u-1 && j+dj < v-1 {
							hole[i+di][j+dj] = true
						}
					}
				}
			}
		}
	}

	m := &Mesh{}
	addQuad := func(a, b, c, d Vec3, flip bool) {
		if flip {
			m.Add(a, c, b)
			m.Add(a, d, c)
		} else {
			m.Add(a, b, c)
			m.Add(a, c, d)
		}
	}
	wall := func(p0In, p1In, p1Out, p0Out Vec3) {
		addQuad(p0In, p1In, p1Out, p0Out, false)
	}

	// Skins. The inner surface faces the forearm, so its winding is
	// flipped to keep normals outward.
	for i := 0; i < u-1; i++ {
		for j := 0; j < v-1; j++ {
			if hole[i][j] {
				continue
			}
			addQuad(inner[i][j], inner[i][j+1], inner[i+1][j+1], inner[i+1][j], true)
			addQuad(outer[i+1][j], outer[i+1][j+1], outer[i][j+1], outer[i][j], false)
		}
	}

	// Walls around each hole, only on edges bordering solid cells.
	for i := 0; i < u-1; i++ {
		for j := 0; j < v-1; j++ {
			if !hole[i][j] {
				continue
			}
			if j == 0 || !hole[i][j-1] {
				wall(inner[i][j], inner[i][j+1], outer[i][j+1], outer[i][j])
			}
			if j == v-2 || !hole[i][j+1] {
				wall(inner[i+1][j+1], inner[i+1][j], outer[i+1][j], outer[i+1][j+1])
			}
			if i == 0 || !hole[i-1][j] {
				wall(inner[i][j], inner[i+1][j], outer[i+1][j], outer[i][j])
			}
			if i == u-2 || !hole[i+1][j] {
				wall(inner[i+1][j+1], inner[i][j+1], outer[i][j+1], outer[i+1][j+1])
			}
		}
	}

	// Side walls along the open arc edges.
	for i := 0; i < u-1; i++ {
		wall(inner[i][0], inner[i+1][0], outer[i+1][0], outer[i][0])
		wall(inner[i+1][v-1], inner[i][v-1], outer[i][v-1], outer[i+1][v-1])
	}

	// End caps, skipping perforated border cells.
	for j := 0; j < v-1; j++ {
		if !hole[0][j] {
			wall(inner[0][j], inner[0][j+1], outer[0][j+1], outer[0][j])
		}
		if !hole[u-2][j] {
			wall(inner[u-1][j+1], inner[u-1][j], outer[u-1][j], outer[u-1][j+1])
		}
	}

	return m
}

// Placeholder returns the degenerate stand-in geometry used when the
// compile engine is unavailable or a compile fails: a small flat tile
// that renders visibly but is obviously not a real part.
func Placeholder() *Mesh {
	return Box(20, 20, 2)
}
