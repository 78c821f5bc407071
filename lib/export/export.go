// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package export writes mesh artifacts: a single combined STL buffer,
// or a zip archive with one STL entry per scene component.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/handforge-project/handforge/lib/mesh"
	"github.com/handforge-project/handforge/lib/scene"
	"github.com/handforge-project/handforge/lib/stl"
)

// WriteCombined encodes the full mesh as one ASCII STL stream.
func WriteCombined(w io.Writer, m *mesh.Mesh, name string) error {
	if _, err := w.Write(stl.Encode(m, name)); err != nil {
		return fmt.Errorf("export: writing combined mesh: %w", err)
	}
	return nil
}

// WriteArchive writes one "<component>.stl" zip entry per group, in
// group order. Component names are sanitized to filesystem-safe form;
// colliding sanitized names get a numeric suffix so no entry is lost.
func WriteArchive(w io.Writer, groups []scene.ComponentGroup) error {
	archive := zip.NewWriter(w)
	seen := make(map[string]int)
	for _, group := range groups {
		name := SanitizeName(group.Name)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		entry, err := archive.Create(name + ".stl")
		if err != nil {
			return fmt.Errorf("export: creating archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(stl.Encode(group.Mesh, group.Name)); err != nil {
			return fmt.Errorf("export: writing archive entry %s: %w", name, err)
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("export: finalizing archive: %w", err)
	}
	return nil
}

// SanitizeName maps a component name to a filesystem-safe base name:
// ASCII letters, digits, dash, underscore; everything else becomes an
// underscore. An empty result becomes "part".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "part"
	}
	return out
}

// Filename builds the conventional timestamped output name for a
// build target, e.g. "gauntlet_20260828-142255.stl".
func Filename(target string, now time.Time) string {
	return fmt.Sprintf("%s_%s.stl", target, now.UTC().Format("20060102-150405"))
}
