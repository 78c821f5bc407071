// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// crashSignatures are stderr fragments that identify a fatal compiler
// crash (as opposed to an ordinary compile error). A matching failure
// is eligible for the one automatic reload-and-retry.
var crashSignatures = []string{
	"module already aborted",
	"Aborted (core dumped)",
}

// execRunner launches the real compiler binary.
type execRunner struct{}

// Resolve tries each candidate location in order and returns the first
// resolvable executable path.
func (execRunner) Resolve(candidates []string) (string, error) {
	var firstErr error
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err == nil {
			return path, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", fmt.Errorf("no candidate resolved: %w", firstErr)
}

// Invoke runs one compile: fixed backend flag, fixed input and output
// paths, working directory set to the private build directory. Exit
// status 0 is the only success signal.
func (execRunner) Invoke(ctx context.Context, handle, dir string) error {
	cmd := exec.CommandContext(ctx, handle, BackendFlag, "-o", OutputFile, ProgramFile)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return fmt.Errorf("session: launching compiler: %w", err)
	}

	// A kill by signal, or a known abort message, is a crash; the
	// session handles those with one reload-and-retry.
	text := stderr.String()
	if exitErr.ExitCode() == -1 || matchesCrashSignature(text) {
		return fmt.Errorf("%w: %v", ErrAborted, firstLine(text))
	}
	return &ExitError{Status: exitErr.ExitCode(), Stderr: text}
}

func matchesCrashSignature(stderr string) bool {
	for _, signature := range crashSignatures {
		if strings.Contains(stderr, signature) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
