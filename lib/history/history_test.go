// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestAddListGet(t *testing.T) {
	store, err := Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	first, err := store.Add(ctx, "full", `{"palm_width": 70}`, "full_20260828-120000.stl")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := store.Add(ctx, "gauntlet", `{"scale": 1.1}`, "gauntlet_20260828-120100.stl")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if second <= first {
		t.Errorf("ids should increase: %d then %d", first, second)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].ID != second || records[0].Target != "gauntlet" {
		t.Errorf("first listed record = %+v, want id %d", records[0], second)
	}

	record, err := store.Get(ctx, first)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Snapshot != `{"palm_width": 70}` {
		t.Errorf("snapshot = %q", record.Snapshot)
	}
	if record.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestGet_NotFound(t *testing.T) {
	store, err := Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "builds.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, "palm", `{}`, "palm.stl"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	records, err := reopened.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Target != "palm" {
		t.Errorf("records after reopen = %+v", records)
	}
}
