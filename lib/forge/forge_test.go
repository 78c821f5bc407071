// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/handforge-project/handforge/lib/assemble"
	"github.com/handforge-project/handforge/lib/cache"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/scene"
	"github.com/handforge-project/handforge/lib/session"
)

const singleFacet = `solid part
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid part
`

// fakeRunner always resolves and writes a fixed output, or fails every
// invoke with err.
type fakeRunner struct {
	mu      sync.Mutex
	err     error
	output  []byte
	invokes int
}

func (f *fakeRunner) Resolve(candidates []string) (string, error) {
	return "/fake/compiler", nil
}

func (f *fakeRunner) Invoke(_ context.Context, _, dir string) error {
	f.mu.Lock()
	f.invokes++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, session.OutputFile), f.output, 0o644)
}

func newTestForge(t *testing.T, runner session.Runner, withCache bool) (*Forge, *cache.Store) {
	t.Helper()
	s := session.New(session.Config{
		Candidates: []string{"fake"},
		Assets:     session.Dir{Root: t.TempDir()},
		Runner:     runner,
	})
	f := &Forge{
		Session:   s,
		Overrides: params.NewOverrides(),
	}
	var store *cache.Store
	if withCache {
		var err error
		store, err = cache.Open(t.TempDir(), nil)
		if err != nil {
			t.Fatal(err)
		}
		f.Cache = store
	}
	return f, store
}

func TestGenerate_CompilesAndDecodes(t *testing.T) {
	runner := &fakeRunner{output: []byte(singleFacet)}
	f, _ := newTestForge(t, runner, false)

	m, result, err := f.Generate(context.Background(), params.NewSet(), assemble.TargetFull)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("triangle count = %d, want 1", m.Len())
	}
	if result.Placeholder || result.FromCache {
		t.Errorf("result = %+v, want fresh compile", result)
	}
	if !strings.Contains(result.ProgramText, "assembled_hand(") {
		t.Errorf("program text missing generator call:\n%s", result.ProgramText)
	}
}

func TestGenerate_SecondCallHitsCache(t *testing.T) {
	runner := &fakeRunner{output: []byte(singleFacet)}
	f, _ := newTestForge(t, runner, true)

	set := params.NewSet()
	if _, result, err := f.Generate(context.Background(), set, assemble.TargetFull); err != nil {
		t.Fatal(err)
	} else if result.FromCache {
		t.Error("first generate reported a cache hit")
	}
	m, result, err := f.Generate(context.Background(), set, assemble.TargetFull)
	if err != nil {
		t.Fatal(err)
	}
	if !result.FromCache {
		t.Error("second generate missed the cache")
	}
	if runner.invokes != 1 {
		t.Errorf("invokes = %d, want 1", runner.invokes)
	}
	if m.Len() != 1 {
		t.Errorf("triangle count = %d, want 1", m.Len())
	}
}

func TestGenerate_CompileFailureYieldsPlaceholder(t *testing.T) {
	runner := &fakeRunner{err: &session.ExitError{Status: 1, Stderr: "syntax error"}}
	f, _ := newTestForge(t, runner, false)

	m, result, err := f.Generate(context.Background(), params.NewSet(), assemble.TargetGauntlet)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Placeholder {
		t.Error("result.Placeholder = false, want true")
	}
	if m.Len() == 0 {
		t.Error("placeholder mesh is empty")
	}
}

func TestGenerate_OverridesShapeProgramText(t *testing.T) {
	runner := &fakeRunner{output: []byte(singleFacet)}
	f, _ := newTestForge(t, runner, false)
	f.Overrides.Apply("palm_width", params.NumberValue(42))

	_, result, err := f.Generate(context.Background(), params.NewSet(), assemble.TargetFull)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.ProgramText, "palm_width = 42;") {
		t.Errorf("override not applied:\n%s", result.ProgramText)
	}
}

func TestOfflineAssembly_PartRoster(t *testing.T) {
	root := OfflineAssembly(params.NewSet(), nil)
	groups := scene.FlattenPartitioned(root)

	names := make(map[string]bool, len(groups))
	for _, g := range groups {
		names[g.Name] = true
		if g.Mesh.Len() == 0 {
			t.Errorf("component %q is empty", g.Name)
		}
	}
	for _, want := range []string{
		scene.PartCuff, scene.PartFinger, scene.PartPalm, scene.PartGauntlet,
		scene.PartPins, scene.PartTensioner, scene.PartProximalFinger,
		scene.PartProximalThumb, scene.PartFingerTip,
	} {
		if !names[want] {
			t.Errorf("missing component %q", want)
		}
	}
}

func TestOfflineAssembly_ThumbToggle(t *testing.T) {
	set := params.NewSet()
	set.Put("thumb", params.BoolValue(false))
	groups := scene.FlattenPartitioned(OfflineAssembly(set, nil))
	for _, g := range groups {
		if g.Name == scene.PartProximalThumb {
			t.Error("thumb component present with thumb=false")
		}
	}
}

func TestOfflineAssembly_LeftHandMirrors(t *testing.T) {
	right := scene.Flatten(OfflineAssembly(params.NewSet(), nil))

	set := params.NewSet()
	set.Put("left_hand", params.BoolValue(true))
	left := scene.Flatten(OfflineAssembly(set, nil))

	if right.Len() != left.Len() {
		t.Fatalf("triangle counts differ: %d vs %d", right.Len(), left.Len())
	}
	// The mirrored assembly flips Y on every vertex.
	ra := right.Triangles[0].A
	la := left.Triangles[0].A
	if la.X != ra.X || la.Y != -ra.Y || la.Z != ra.Z {
		t.Errorf("mirror mismatch: right %v, left %v", ra, la)
	}
}
