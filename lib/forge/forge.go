// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package forge orchestrates the generation pipeline: parameter set →
// assembled program text → compiler session → raw mesh buffer →
// decoded triangle soup. It owns the degradation policy: when the
// engine is unavailable or a compile fails, generation falls back to
// placeholder geometry instead of failing the whole operation.
package forge

import (
	"context"
	"log/slog"
	"time"

	"github.com/handforge-project/handforge/lib/assemble"
	"github.com/handforge-project/handforge/lib/cache"
	"github.com/handforge-project/handforge/lib/mesh"
	"github.com/handforge-project/handforge/lib/params"
	"github.com/handforge-project/handforge/lib/session"
	"github.com/handforge-project/handforge/lib/stl"
)

// Forge runs generations against one shared compiler session.
type Forge struct {
	// Session is the shared compile engine. Required.
	Session *session.Session

	// Cache, when non-nil, short-circuits compiles of program text
	// seen before.
	Cache *cache.Store

	// Overrides is the sticky parameter override layer applied to
	// every build. Required.
	Overrides *params.Overrides

	// Logger receives operational messages. If nil, discarded.
	Logger *slog.Logger

	// Now supplies the current time (serial fallback, filenames).
	// Nil means time.Now.
	Now func() time.Time
}

// Result describes how a generation was satisfied.
type Result struct {
	// ProgramText is the assembled program, kept for diagnostics and
	// history.
	ProgramText string
	// FromCache is true when the compile was skipped entirely.
	FromCache bool
	// Placeholder is true when the mesh is degenerate stand-in
	// geometry because the engine was unavailable or the compile
	// failed.
	Placeholder bool
}

func (f *Forge) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (f *Forge) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// AssembleOptions returns the assembly options for the current clock:
// the serial fallback is today's date.
func (f *Forge) AssembleOptions() assemble.Options {
	return assemble.Options{SerialFallback: f.now().UTC().Format("2006-01-02")}
}

// Generate produces the mesh for one target. Engine unavailability and
// compile failures are non-fatal: the returned mesh is placeholder
// geometry and Result.Placeholder is set. Codec failures on a
// successful compile are fatal — a corrupt buffer is a bug worth
// surfacing, not papering over.
func (f *Forge) Generate(ctx context.Context, set *params.Set, target assemble.Target) (*mesh.Mesh, Result, error) {
	merged := f.Overrides.Merge(set)
	programText := assemble.Assemble(merged, target, f.AssembleOptions())
	result := Result{ProgramText: programText}

	buffer, fromCache := f.lookupCache(programText)
	result.FromCache = fromCache
	if !fromCache {
		var err error
		buffer, err = f.Session.Compile(ctx, programText)
		if err != nil {
			f.logger().Warn("compile failed, substituting placeholder geometry",
				"target", target.String(),
				"error", err,
			)
			result.Placeholder = true
			return mesh.Placeholder(), result, nil
		}
		f.storeCache(programText, buffer)
	}

	m, err := stl.Decode(buffer)
	if err != nil {
		if fromCache {
			// A cache entry that no longer decodes is stale damage,
			// not a compiler bug; recompile once without it.
			f.logger().Warn("cached buffer failed to decode, recompiling", "error", err)
			buffer, compileErr := f.Session.Compile(ctx, programText)
			if compileErr != nil {
				result.Placeholder = true
				result.FromCache = false
				return mesh.Placeholder(), result, nil
			}
			f.storeCache(programText, buffer)
			m, err = stl.Decode(buffer)
			if err == nil {
				result.FromCache = false
				m.RecomputeNormals()
				return m, result, nil
			}
		}
		return nil, result, err
	}

	// The export and faceted-preview paths derive normals from the
	// final winding; stored normals from the buffer are not trusted.
	m.RecomputeNormals()
	return m, result, nil
}

func (f *Forge) lookupCache(programText string) ([]byte, bool) {
	if f.Cache == nil {
		return nil, false
	}
	return f.Cache.Get(programText)
}

func (f *Forge) storeCache(programText string, buffer []byte) {
	if f.Cache == nil {
		return
	}
	if err := f.Cache.Put(programText, buffer); err != nil {
		f.logger().Warn("cache store failed", "error", err)
	}
}
