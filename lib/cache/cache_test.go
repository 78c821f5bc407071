// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// binaryBuffer builds a plausible binary STL payload with repetitive
// float records so lz4 has something to compress.
func binaryBuffer(triangles int) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(triangles))
	for i := 0; i < triangles; i++ {
		for f := 0; f < 12; f++ {
			binary.Write(&buf, binary.LittleEndian, float32(i%7))
		}
		buf.Write([]byte{0, 0})
	}
	return buf.Bytes()
}

func asciiBuffer() []byte {
	var buf bytes.Buffer
	buf.WriteString("solid cached\n")
	for i := 0; i < 50; i++ {
		buf.WriteString("  facet normal 0 0 1\n    outer loop\n      vertex 0 0 0\n      vertex 1 0 0\n      vertex 0 1 0\n    endloop\n  endfacet\n")
	}
	buf.WriteString("endsolid cached\n")
	return buf.Bytes()
}

func TestRoundTrip_Binary(t *testing.T) {
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	program := "cube(10);\n"
	buffer := binaryBuffer(40)

	if _, hit := store.Get(program); hit {
		t.Fatal("unexpected hit before Put")
	}
	if err := store.Put(program, buffer); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, hit := store.Get(program)
	if !hit {
		t.Fatal("expected hit after Put")
	}
	if !bytes.Equal(got, buffer) {
		t.Errorf("round trip changed buffer: %d bytes vs %d", len(got), len(buffer))
	}
}

func TestRoundTrip_ASCII(t *testing.T) {
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	program := "sphere(5);\n"
	buffer := asciiBuffer()
	if err := store.Put(program, buffer); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, hit := store.Get(program)
	if !hit || !bytes.Equal(got, buffer) {
		t.Error("ASCII buffer did not round trip")
	}
}

func TestKey_DistinguishesPrograms(t *testing.T) {
	a := Key("cube(1);\n")
	b := Key("cube(2);\n")
	if a == b {
		t.Fatal("distinct programs must have distinct keys")
	}
	if a != Key("cube(1);\n") {
		t.Fatal("equal programs must have equal keys")
	}
}

func TestGet_TinyBufferStoredRaw(t *testing.T) {
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	tiny := []byte("solid t\nendsolid t\n")
	if err := store.Put("p", tiny); err != nil {
		t.Fatal(err)
	}
	got, hit := store.Get("p")
	if !hit || !bytes.Equal(got, tiny) {
		t.Error("tiny buffer did not round trip")
	}
}

func TestGet_CorruptEntryIsMissAndEvicted(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	program := "cube(3);\n"
	if err := store.Put(program, binaryBuffer(10)); err != nil {
		t.Fatal(err)
	}

	// Corrupt the entry on disk.
	key := Key(program)
	path := store.path(key)
	if err := os.WriteFile(path, []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit := store.Get(program); hit {
		t.Fatal("corrupt entry must be a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be evicted from disk")
	}
	// An unrelated file in the dir is untouched.
	other := filepath.Join(dir, "README")
	os.WriteFile(other, []byte("x"), 0o644)
	store.Get(program)
	if _, err := os.Stat(other); err != nil {
		t.Error("eviction must only touch the corrupt entry")
	}
}
