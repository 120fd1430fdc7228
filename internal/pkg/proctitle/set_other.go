//go:build !linux

package proctitle

import "os"

// Set only rewrites os.Args[0] outside Linux.
func Set(title string) (string, error) {
	name := clip(title)
	if name == "" {
		return "", errEmpty
	}
	if len(os.Args) > 0 {
		os.Args[0] = name
	}
	return name, nil
}
