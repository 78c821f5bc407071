// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache stores compiled mesh buffers keyed by the program text
// that produced them. Source assembly is deterministic, so equal
// parameter sets hash to equal program text and hit the same entry —
// re-tuning a slider back to a previous value never re-runs the
// compiler.
package cache

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/handforge-project/handforge/lib/stl"
)

// Tag identifies the compression applied to a cached payload. Values
// are stored on disk; do not renumber.
type Tag uint8

const (
	// TagNone stores the payload uncompressed (tiny buffers).
	TagNone Tag = 0
	// TagLZ4 is the fast default for binary mesh buffers.
	TagLZ4 Tag = 1
	// TagZstd compresses text buffers, which ratio far better.
	TagZstd Tag = 2
)

// noCompressThreshold is the payload size below which compression is
// not worth the header overhead.
const noCompressThreshold = 128

// entry is the on-disk cache record, CBOR-encoded with deterministic
// field order.
type entry struct {
	Key         []byte    `cbor:"key"`
	CreatedAt   time.Time `cbor:"created_at"`
	Compression Tag       `cbor:"compression"`
	RawSize     int       `cbor:"raw_size"`
	Payload     []byte    `cbor:"payload"`
}

// encMode encodes entries with RFC 8949 Core Deterministic Encoding:
// same entry, same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

// Store is a directory of cached compile results. Safe for concurrent
// use by independent processes: entries are written via rename.
type Store struct {
	dir    string
	logger *slog.Logger
	zenc   *zstd.Encoder
	zdec   *zstd.Decoder
}

// Open creates (if needed) and opens a cache directory.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating %s: %w", dir, err)
	}
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}
	return &Store{dir: dir, logger: logger, zenc: zenc, zdec: zdec}, nil
}

// Key hashes program text to a cache key.
func Key(programText string) [32]byte {
	return blake3.Sum256([]byte(programText))
}

func (s *Store) path(key [32]byte) string {
	return filepath.Join(s.dir, hex.EncodeToString(key[:])+".cbor")
}

// Get returns the cached mesh buffer for program text, or false on a
// miss. A corrupt entry is logged, removed, and reported as a miss.
func (s *Store) Get(programText string) ([]byte, bool) {
	key := Key(programText)
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		s.evictCorrupt(key, err)
		return nil, false
	}
	buffer, err := s.expand(&e)
	if err != nil {
		s.evictCorrupt(key, err)
		return nil, false
	}
	return buffer, true
}

// Put stores a compiled mesh buffer under its program text. Binary
// buffers compress with lz4, text buffers with zstd, tiny buffers not
// at all — the same split the artifact pipeline uses, because float32
// triangle records and ASCII facet text have very different entropy.
func (s *Store) Put(programText string, buffer []byte) error {
	key := Key(programText)
	e := entry{
		Key:       key[:],
		CreatedAt: time.Now().UTC(),
		RawSize:   len(buffer),
	}
	switch {
	case len(buffer) < noCompressThreshold:
		e.Compression = TagNone
		e.Payload = buffer
	case stl.Detect(buffer) == stl.FormatBinary:
		e.Compression = TagLZ4
		compressed := make([]byte, lz4.CompressBlockBound(len(buffer)))
		n, err := lz4.CompressBlock(buffer, compressed, nil)
		if err != nil || n == 0 || n >= len(buffer) {
			// Incompressible; store raw.
			e.Compression = TagNone
			e.Payload = buffer
		} else {
			e.Payload = compressed[:n]
		}
	default:
		e.Compression = TagZstd
		e.Payload = s.zenc.EncodeAll(buffer, nil)
	}

	data, err := encMode.Marshal(&e)
	if err != nil {
		return fmt.Errorf("cache: encoding entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: writing entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// expand decompresses an entry's payload.
func (s *Store) expand(e *entry) ([]byte, error) {
	switch e.Compression {
	case TagNone:
		return e.Payload, nil
	case TagLZ4:
		out := make([]byte, e.RawSize)
		n, err := lz4.UncompressBlock(e.Payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != e.RawSize {
			return nil, fmt.Errorf("lz4: expanded to %d bytes, expected %d", n, e.RawSize)
		}
		return out, nil
	case TagZstd:
		out, err := s.zdec.DecodeAll(e.Payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression tag %d", e.Compression)
	}
}

func (s *Store) evictCorrupt(key [32]byte, err error) {
	s.logger.Warn("evicting corrupt cache entry",
		"key", hex.EncodeToString(key[:8]),
		"error", err,
	)
	os.Remove(s.path(key))
}
