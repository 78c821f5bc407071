// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"math"
	"testing"

	"github.com/handforge-project/handforge/lib/mesh"
)

func triangleGeometry() *Geometry {
	return &Geometry{
		Positions: []mesh.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
	}
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-5
}

func TestFlatten_ParentChainApplies(t *testing.T) {
	root := NewNode("root")
	parent := NewNode("parent")
	parent.Transform = mesh.Translate(10, 0, 0)
	leaf := NewNode("leaf")
	leaf.Transform = mesh.Translate(0, 5, 0)
	leaf.Geometry = triangleGeometry()
	root.AddChild(parent)
	parent.AddChild(leaf)

	m := Flatten(root)
	if m.Len() != 1 {
		t.Fatalf("expected 1 triangle, got %d", m.Len())
	}
	// The full chain (10,0,0)+(0,5,0) applies, not just the leaf's.
	a := m.Triangles[0].A
	if a != (mesh.Vec3{X: 10, Y: 5, Z: 0}) {
		t.Errorf("vertex A = %+v, want (10,5,0)", a)
	}
}

func TestFlatten_IndexedGeometry(t *testing.T) {
	leaf := NewNode("leaf")
	leaf.Geometry = &Geometry{
		Positions: []mesh.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
	m := Flatten(leaf)
	if m.Len() != 2 {
		t.Fatalf("expected 2 indexed triangles, got %d", m.Len())
	}
	if m.Triangles[1].B != (mesh.Vec3{X: 1, Y: 1, Z: 0}) {
		t.Errorf("second triangle B = %+v, want (1,1,0)", m.Triangles[1].B)
	}
}

func TestFlatten_MirrorAndNonUniformScaleNormals(t *testing.T) {
	// A 2× non-uniform scale plus a Y mirror flips handedness. The
	// recomputed normal must agree with the transformed winding, not
	// the pre-transform winding.
	root := NewNode("root")
	root.Transform = mesh.Scale(2, -1, 1)
	leaf := NewNode("leaf")
	leaf.Geometry = triangleGeometry()
	root.AddChild(leaf)

	m := Flatten(root)
	if m.Len() != 1 {
		t.Fatalf("expected 1 triangle, got %d", m.Len())
	}
	tri := m.Triangles[0]
	want := tri.FaceNormal()
	if tri.Normal != want {
		t.Errorf("stored normal %+v disagrees with transformed winding normal %+v", tri.Normal, want)
	}
	// Pre-transform normal was +Z; the mirrored winding points -Z.
	if !almostEqual(tri.Normal.Z, -1) {
		t.Errorf("normal Z = %v, want -1 after mirroring", tri.Normal.Z)
	}
}

func TestFlattenPartitioned_PerChildGroups(t *testing.T) {
	root := NewNode("root")
	gauntlet := NewNode("gauntlet")
	gauntlet.AddChild(func() *Node {
		leaf := NewNode("shell")
		leaf.Geometry = triangleGeometry()
		return leaf
	}())
	palm := NewNode("palm")
	palm.Geometry = triangleGeometry()
	empty := NewNode("annotations") // no geometry anywhere
	root.AddChild(gauntlet, palm, empty)

	groups := FlattenPartitioned(root)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "gauntlet" || groups[1].Name != "palm" {
		t.Errorf("group names = %q, %q", groups[0].Name, groups[1].Name)
	}
	if groups[0].Mesh.Len() != 1 || groups[1].Mesh.Len() != 1 {
		t.Error("each group should hold its subtree's triangles")
	}
}

func TestFlattenPartitioned_RootGeometryFallback(t *testing.T) {
	root := NewNode("root")
	root.Geometry = triangleGeometry()

	groups := FlattenPartitioned(root)
	if len(groups) != 1 {
		t.Fatalf("expected 1 synthetic group, got %d", len(groups))
	}
	if groups[0].Name != "model" {
		t.Errorf("synthetic group name = %q, want model", groups[0].Name)
	}
	if groups[0].Mesh.Len() != 1 {
		t.Errorf("synthetic group should hold all %d triangles", 1)
	}
}

func TestFlattenPartitioned_EmptySceneYieldsNoGroups(t *testing.T) {
	if groups := FlattenPartitioned(NewNode("root")); len(groups) != 0 {
		t.Errorf("empty scene should partition to no groups, got %d", len(groups))
	}
}

func TestBuildAssembly_DefaultPlacements(t *testing.T) {
	parts := map[string]*mesh.Mesh{
		PartCuff:           mesh.Box(10, 10, 10),
		PartGauntlet:       mesh.Box(10, 10, 10),
		PartProximalFinger: mesh.Box(4, 4, 4),
	}
	root := BuildAssembly(parts, nil, AssemblyOptions{})

	groups := FlattenPartitioned(root)
	if len(groups) != 3 {
		t.Fatalf("expected 3 component groups, got %d", len(groups))
	}

	byName := map[string]*mesh.Mesh{}
	for _, g := range groups {
		byName[g.Name] = g.Mesh
	}
	// Gauntlet sits at z −70: every vertex is below −50.
	for _, tri := range byName[PartGauntlet].Triangles {
		if tri.A.Z > -50 {
			t.Fatalf("gauntlet vertex at z=%v, expected below -50", tri.A.Z)
		}
	}
	// Four proximal finger instances share one component.
	if got := byName[PartProximalFinger].Len(); got != 4*12 {
		t.Errorf("proximal_finger triangles = %d, want %d", got, 4*12)
	}
}

func TestBuildAssembly_LayoutOverride(t *testing.T) {
	layout, err := LoadLayout([]byte(`{
  "placements": {
    // move the cuff out of the way
    "cuff": {"translate": [100, 0, 0]},
  }
}`))
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	parts := map[string]*mesh.Mesh{PartCuff: mesh.Box(2, 2, 2)}
	m := Flatten(BuildAssembly(parts, layout, AssemblyOptions{}))
	for _, tri := range m.Triangles {
		if tri.A.X < 90 {
			t.Fatalf("cuff vertex at x=%v, expected translated past 90", tri.A.X)
		}
	}
}

func TestBuildAssembly_LeftHandMirrors(t *testing.T) {
	parts := map[string]*mesh.Mesh{PartProximalThumb: mesh.Box(2, 2, 2)}
	right := Flatten(BuildAssembly(parts, nil, AssemblyOptions{}))
	left := Flatten(BuildAssembly(parts, nil, AssemblyOptions{LeftHand: true}))

	if right.Len() != left.Len() {
		t.Fatal("mirroring must not change triangle count")
	}
	// The thumb sits at +Y 15 on a right hand, so its mirror is -Y.
	if !almostEqual(left.Triangles[0].A.Y, -right.Triangles[0].A.Y) {
		t.Errorf("left Y = %v, want mirror of right Y = %v",
			left.Triangles[0].A.Y, right.Triangles[0].A.Y)
	}
	// Normals stay consistent with the mirrored winding.
	for i, tri := range left.Triangles {
		if tri.Normal != tri.FaceNormal() {
			t.Fatalf("triangle %d: normal inconsistent after mirror", i)
		}
	}
}
