// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package session manages the lifecycle of the external geometry
// compiler: resolving the compiler binary, preparing its private build
// directory, preloading auxiliary source modules, invoking compiles,
// and recovering from compiler crashes.
//
// One Session exists per process. It is an explicitly owned resource:
// construct it once and hand the same instance to every caller. The
// internal state machine is
//
//	Unloaded → Loading → Ready | Unavailable
//	Ready → Unloaded (on a detected crash, retried once)
//
// Unavailable is terminal for the process; callers substitute
// placeholder geometry and carry on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/handforge-project/handforge/lib/assemble"
)

// State is the session lifecycle state.
type State int

const (
	// StateUnloaded means no compiler instance exists yet.
	StateUnloaded State = iota
	// StateLoading means one caller is instantiating the compiler;
	// concurrent callers wait for that shared attempt to settle.
	StateLoading
	// StateReady means a live compiler instance is available.
	StateReady
	// StateUnavailable means instantiation failed. Terminal until a
	// fresh process.
	StateUnavailable
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fixed filenames inside the session's private build directory. The
// compiler contract is a fixed input path, a fixed output path, and a
// fixed backend selection flag; exit status 0 is the only success
// signal.
const (
	ProgramFile = "model.scad"
	OutputFile  = "model.stl"
	BackendFlag = "--backend=manifold"
)

// ErrUnavailable is returned by every compile once the session has
// entered the Unavailable state.
var ErrUnavailable = errors.New("session: compile engine unavailable (are the engine assets installed?)")

// ErrAborted marks a compile failure caused by a fatal compiler
// crash. The session retries such a failure exactly once with a fresh
// instance; a second crash propagates wrapped in ErrCrashed.
var ErrAborted = errors.New("session: compiler module aborted")

// ErrCrashed is the fatal form of ErrAborted: the retried compile
// crashed again.
var ErrCrashed = errors.New("session: compiler crashed twice, giving up")

// ExitError reports a compiler run that exited with non-zero status.
type ExitError struct {
	Status int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("session: compiler exited with status %d", e.Status)
}

// AssetSource supplies auxiliary source modules and fonts by name.
type AssetSource interface {
	// Fetch returns the content of the named asset.
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Dir is an AssetSource backed by a local directory.
type Dir struct {
	Root string
}

// Fetch reads the named file under the root directory.
func (d Dir) Fetch(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, name))
}

// Runner abstracts compiler instantiation and invocation so tests can
// substitute a fake. The default implementation launches the real
// compiler binary.
type Runner interface {
	// Resolve locates a usable compiler, trying candidates in order;
	// the first success wins. The returned handle is passed to every
	// Invoke for this instance.
	Resolve(candidates []string) (string, error)

	// Invoke runs one compile in dir: ProgramFile in, OutputFile out.
	// A crash must be reported as an error wrapping ErrAborted; a
	// non-zero exit as *ExitError.
	Invoke(ctx context.Context, handle, dir string) error
}

// Config configures a Session.
type Config struct {
	// Candidates is the ordered list of compiler locations to try.
	// Defaults to {"openscad", "openscad-nightly"}.
	Candidates []string

	// Assets supplies auxiliary modules and fonts. Required.
	Assets AssetSource

	// Modules is the ordered auxiliary-module manifest preloaded into
	// the build directory. Defaults to assemble.Manifest.
	Modules []string

	// Fonts are optional font assets for text-engraving primitives.
	// Defaults to assemble.FontAssets.
	Fonts []string

	// Runner overrides compiler instantiation/invocation, for tests.
	Runner Runner

	// Logger receives operational messages. If nil, discarded.
	Logger *slog.Logger
}

// instance is one live compiler: the resolved handle plus its private
// build directory holding the preloaded modules.
type instance struct {
	handle string
	dir    string
}

// Session is the single shared compile engine. All state transitions
// are serialized through one mutex so concurrent callers share one
// load attempt and observe the same Ready/Unavailable outcome.
type Session struct {
	cfg    Config
	logger *slog.Logger
	runner Runner

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	inst  *instance

	// compileMu serializes compiles: at most one in flight.
	compileMu sync.Mutex

	// loadCount counts instantiation attempts, observable in tests
	// via LoadCount.
	loadCount int
}

// New creates a session in the Unloaded state. Nothing is launched
// until the first compile.
func New(cfg Config) *Session {
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = []string{"openscad", "openscad-nightly"}
	}
	if cfg.Modules == nil {
		cfg.Modules = assemble.Manifest
	}
	if cfg.Fonts == nil {
		cfg.Fonts = assemble.FontAssets
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	runner := cfg.Runner
	if runner == nil {
		runner = &execRunner{}
	}
	s := &Session{cfg: cfg, logger: logger, runner: runner}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadCount reports how many compiler instantiation attempts have
// occurred. A crash-retried compile shows two.
func (s *Session) LoadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCount
}

// EnsureReady warms up the engine without compiling anything: it
// performs or joins the shared load and returns once the session is
// Ready (nil) or Unavailable (ErrUnavailable).
func (s *Session) EnsureReady(ctx context.Context) error {
	_, err := s.ensureReady(ctx)
	return err
}

// ensureReady returns a live instance, performing or awaiting the
// shared load as needed. Unavailable fails immediately with no retry.
func (s *Session) ensureReady(ctx context.Context) (*instance, error) {
	s.mu.Lock()
	for {
		switch s.state {
		case StateReady:
			inst := s.inst
			s.mu.Unlock()
			return inst, nil
		case StateUnavailable:
			s.mu.Unlock()
			return nil, ErrUnavailable
		case StateLoading:
			// Another caller owns the load attempt; wait for it to
			// settle. All waiters wake on Broadcast and re-examine
			// the state.
			s.cond.Wait()
		case StateUnloaded:
			s.state = StateLoading
			s.loadCount++
			s.mu.Unlock()

			inst, err := s.load(ctx)

			s.mu.Lock()
			if err != nil {
				s.state = StateUnavailable
				s.inst = nil
				s.cond.Broadcast()
				s.mu.Unlock()
				s.logger.Error("compile engine unavailable", "error", err)
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			s.state = StateReady
			s.inst = inst
			s.cond.Broadcast()
			s.mu.Unlock()
			return inst, nil
		}
	}
}

// load instantiates the compiler: resolve the binary, create the
// private build directory, and preload auxiliary modules and fonts.
// Module and font fetch failures are logged and skipped — a compile
// that needs a missing module fails later, at compile time, with the
// compiler's own undefined-symbol report.
func (s *Session) load(ctx context.Context) (*instance, error) {
	handle, err := s.runner.Resolve(s.cfg.Candidates)
	if err != nil {
		return nil, fmt.Errorf("resolving compiler (tried %v): %w", s.cfg.Candidates, err)
	}
	dir, err := os.MkdirTemp("", "handforge-build-*")
	if err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}

	for _, name := range s.cfg.Modules {
		data, err := s.cfg.Assets.Fetch(ctx, name)
		if err != nil {
			s.logger.Warn("auxiliary module unavailable, skipping", "module", name, "error", err)
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			s.logger.Warn("auxiliary module preload failed, skipping", "module", name, "error", err)
		}
	}
	if len(s.cfg.Fonts) > 0 {
		fontDir := filepath.Join(dir, "fonts")
		if err := os.MkdirAll(fontDir, 0o755); err == nil {
			for _, name := range s.cfg.Fonts {
				data, err := s.cfg.Assets.Fetch(ctx, name)
				if err != nil {
					s.logger.Warn("font asset unavailable, skipping", "font", name, "error", err)
					continue
				}
				if err := os.WriteFile(filepath.Join(fontDir, name), data, 0o644); err != nil {
					s.logger.Warn("font preload failed, skipping", "font", name, "error", err)
				}
			}
		}
	}

	s.logger.Info("compile engine ready", "compiler", handle, "build_dir", dir)
	return &instance{handle: handle, dir: dir}, nil
}

// reset tears the session back to Unloaded after a crash: the dead
// instance handle is discarded and the preloaded build directory
// removed, so the next load starts from nothing.
func (s *Session) reset(dead *instance) {
	s.mu.Lock()
	if s.inst == dead {
		s.state = StateUnloaded
		s.inst = nil
		s.cond.Broadcast()
	}
	s.mu.Unlock()
	if dead != nil {
		os.RemoveAll(dead.dir)
	}
}

// Compile runs the program text through the compiler and returns the
// raw output buffer. At most one compile is in flight at a time. A
// compile that fails with the crash signature is retried exactly once
// against a freshly loaded instance; a second crash fails with
// ErrCrashed. Every other failure propagates unretried.
//
// There is no timeout: a hung compiler hangs the caller. Callers that
// need one can wrap Compile themselves.
func (s *Session) Compile(ctx context.Context, programText string) ([]byte, error) {
	s.compileMu.Lock()
	defer s.compileMu.Unlock()

	output, err := s.compileOnce(ctx, programText)
	if err == nil {
		return output, nil
	}
	if !errors.Is(err, ErrAborted) {
		s.logger.Error("compile failed", "error", err, "program", programText)
		return nil, err
	}

	s.logger.Warn("compiler crashed, reloading and retrying once", "error", err)
	output, err = s.compileOnce(ctx, programText)
	if err == nil {
		return output, nil
	}
	if errors.Is(err, ErrAborted) {
		err = fmt.Errorf("%w: %v", ErrCrashed, err)
	}
	s.logger.Error("compile failed after retry", "error", err, "program", programText)
	return nil, err
}

// compileOnce performs a single ensureReady + invoke + read-back
// attempt. On a crash signature the session is reset so the caller's
// retry starts from Unloaded.
func (s *Session) compileOnce(ctx context.Context, programText string) ([]byte, error) {
	inst, err := s.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	programPath := filepath.Join(inst.dir, ProgramFile)
	if err := os.WriteFile(programPath, []byte(programText), 0o644); err != nil {
		return nil, fmt.Errorf("session: writing program: %w", err)
	}

	if err := s.runner.Invoke(ctx, inst.handle, inst.dir); err != nil {
		if errors.Is(err, ErrAborted) {
			s.reset(inst)
		}
		return nil, err
	}

	output, err := os.ReadFile(filepath.Join(inst.dir, OutputFile))
	if err != nil {
		return nil, fmt.Errorf("session: compiler reported success but produced no output: %w", err)
	}
	return output, nil
}
