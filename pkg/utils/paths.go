// Package utils holds small filesystem helpers used by pkg/driver.
package utils

import "path/filepath"

// ResolveInputPath turns a (possibly relative) source path into its
// absolute form and the absolute directory containing it, so derived
// sibling paths (the emitted .c file, the linked executable) land next to
// the input regardless of the process's working directory or any ../ in
// the path the user typed.
func ResolveInputPath(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}
