// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package stl encodes and decodes the STL mesh-interchange format.
//
// Decoding accepts both the binary and the ASCII encoding and
// auto-detects which one a buffer uses. Encoding always produces the
// ASCII form. Neither direction preserves topology: STL is a triangle
// soup and so is the in-memory model.
package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/handforge-project/handforge/lib/mesh"
)

// Format identifies which STL encoding a buffer uses.
type Format int

const (
	// FormatASCII is the textual solid/facet/vertex grammar.
	FormatASCII Format = iota
	// FormatBinary is the 80-byte-header little-endian layout.
	FormatBinary
)

// String returns the format name.
func (f Format) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "ascii"
}

// headerSize is the binary STL fixed header: an 80-byte comment block
// followed by a 4-byte little-endian triangle count. Buffers shorter
// than this cannot be binary STL.
const headerSize = 84

// recordSize is one binary triangle record: float32 normal (12 bytes),
// three float32 vertices (36 bytes), and a 2-byte attribute word.
const recordSize = 50

// ErrLengthMismatch indicates a binary buffer whose declared triangle
// count implies more bytes than are present. The decoder never reads
// past the end of the buffer.
var ErrLengthMismatch = errors.New("stl: binary length mismatch")

// Detect sniffs the encoding of a raw buffer. A buffer shorter than
// the minimum binary header is always ASCII. Otherwise, if the first
// 80 bytes, trimmed and case-folded, begin with the keyword "solid",
// the buffer is treated as ASCII; anything else is binary. Detection
// is a heuristic: Decode falls back to the other format when the
// detected one fails to parse.
func Detect(buffer []byte) Format {
	if len(buffer) < headerSize {
		return FormatASCII
	}
	head := bytes.ToLower(bytes.TrimSpace(buffer[:80]))
	if bytes.HasPrefix(head, []byte("solid")) {
		return FormatASCII
	}
	return FormatBinary
}

// Decode parses a raw STL buffer in either encoding. The format is
// auto-detected; if the detected decoder fails, the other decoder is
// tried as a best-effort recovery before the decode fails for good.
//
// Binary input carries per-triangle normals and they are preserved.
// ASCII input carries none: triangle normals are zero until the caller
// runs a normal-generation pass (mesh.RecomputeNormals).
func Decode(buffer []byte) (*mesh.Mesh, error) {
	var first, second func([]byte) (*mesh.Mesh, error)
	if Detect(buffer) == FormatBinary {
		first, second = DecodeBinary, DecodeASCII
	} else {
		first, second = DecodeASCII, DecodeBinary
	}
	m, firstErr := first(buffer)
	if firstErr == nil {
		return m, nil
	}
	m, secondErr := second(buffer)
	if secondErr == nil {
		return m, nil
	}
	return nil, fmt.Errorf("stl: buffer (%d bytes) is neither valid ASCII nor binary STL: %w",
		len(buffer), errors.Join(firstErr, secondErr))
}

// floatPattern matches a decimal float with optional sign and
// scientific exponent, as emitted by every STL writer in the wild.
const floatPattern = `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`

var vertexPattern = regexp.MustCompile(
	`vertex\s+(` + floatPattern + `)\s+(` + floatPattern + `)\s+(` + floatPattern + `)`)

// DecodeASCII parses the textual STL grammar. Every "vertex x y z"
// occurrence is collected in document order and consecutive groups of
// three become one triangle; facet normals in the input are ignored
// (many exporters write garbage there). A trailing group of one or two
// vertices is discarded.
func DecodeASCII(buffer []byte) (*mesh.Mesh, error) {
	matches := vertexPattern.FindAllSubmatch(buffer, -1)
	if len(matches) == 0 {
		// An empty-but-valid ASCII solid still has its endsolid
		// trailer. Without that this is not ASCII STL at all — a
		// binary file whose header happens to start with "solid"
		// lands here and gets rescued by Decode's fallback.
		if !bytes.Contains(bytes.ToLower(buffer), []byte("endsolid")) {
			return nil, fmt.Errorf("stl: buffer (%d bytes) contains no ASCII STL geometry", len(buffer))
		}
	}

	m := &mesh.Mesh{}
	var triple [3]mesh.Vec3
	count := 0
	for _, match := range matches {
		var v mesh.Vec3
		for axis := 0; axis < 3; axis++ {
			f, err := strconv.ParseFloat(string(match[axis+1]), 32)
			if err != nil {
				return nil, fmt.Errorf("stl: malformed vertex coordinate %q: %w", match[axis+1], err)
			}
			switch axis {
			case 0:
				v.X = float32(f)
			case 1:
				v.Y = float32(f)
			case 2:
				v.Z = float32(f)
			}
		}
		triple[count%3] = v
		count++
		if count%3 == 0 {
			m.Triangles = append(m.Triangles, mesh.Triangle{
				A: triple[0], B: triple[1], C: triple[2],
			})
		}
	}
	return m, nil
}

// DecodeBinary parses the binary STL layout: an ignored 80-byte
// header, a little-endian uint32 triangle count, then 50-byte records
// of normal, three vertices, and an ignored attribute word. A declared
// count that implies more bytes than the buffer holds fails with
// ErrLengthMismatch; the decoder never reads out of bounds.
func DecodeBinary(buffer []byte) (*mesh.Mesh, error) {
	if len(buffer) < headerSize {
		return nil, fmt.Errorf("stl: buffer too short for binary STL: %d bytes, need at least %d",
			len(buffer), headerSize)
	}
	count := binary.LittleEndian.Uint32(buffer[80:headerSize])
	need := headerSize + int64(count)*recordSize
	if need > int64(len(buffer)) {
		return nil, fmt.Errorf("%w: header declares %d triangles (%d bytes) but buffer has %d bytes",
			ErrLengthMismatch, count, need, len(buffer))
	}

	m := &mesh.Mesh{Triangles: make([]mesh.Triangle, 0, count)}
	offset := headerSize
	readVec := func() mesh.Vec3 {
		v := mesh.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(buffer[offset:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(buffer[offset+4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(buffer[offset+8:])),
		}
		offset += 12
		return v
	}
	for i := uint32(0); i < count; i++ {
		var t mesh.Triangle
		t.Normal = readVec()
		t.A = readVec()
		t.B = readVec()
		t.C = readVec()
		offset += 2 // attribute byte count, ignored
		m.Triangles = append(m.Triangles, t)
	}
	return m, nil
}

// Encode renders a mesh as ASCII STL. Triangles are emitted in input
// order (required for reproducible output) and every facet normal is
// recomputed from the triangle's winding, never trusted from the
// stored value, so exported normals always agree with the vertex
// order even after mirroring transforms.
func Encode(m *mesh.Mesh, name string) []byte {
	var b strings.Builder
	b.WriteString("solid ")
	b.WriteString(name)
	b.WriteByte('\n')
	for _, t := range m.Triangles {
		n := t.FaceNormal()
		b.WriteString("  facet normal ")
		writeVec(&b, n)
		b.WriteString("\n    outer loop\n")
		for _, v := range [3]mesh.Vec3{t.A, t.B, t.C} {
			b.WriteString("      vertex ")
			writeVec(&b, v)
			b.WriteByte('\n')
		}
		b.WriteString("    endloop\n  endfacet\n")
	}
	b.WriteString("endsolid ")
	b.WriteString(name)
	b.WriteByte('\n')
	return []byte(b.String())
}

func writeVec(b *strings.Builder, v mesh.Vec3) {
	b.WriteString(formatCoord(v.X))
	b.WriteByte(' ')
	b.WriteString(formatCoord(v.Y))
	b.WriteByte(' ')
	b.WriteString(formatCoord(v.Z))
}

// formatCoord emits the shortest decimal representation that parses
// back to the same float32. No rounding, no fixed precision.
func formatCoord(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
