package config

import (
	"os"
	"path/filepath"
)

// ExecutableDir is the directory holding the running binary, falling back to
// the working directory.
func ExecutableDir() string {
	if exe, err := os.Executable(); err == nil && exe != "" {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// ResolveRuntimePath anchors a relative runtime directory at ExecutableDir.
// An empty raw uses fallback.
func ResolveRuntimePath(raw, fallback string) string {
	target := raw
	if target == "" {
		target = fallback
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(ExecutableDir(), target)
}
