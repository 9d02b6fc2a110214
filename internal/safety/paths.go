// Package safety confines source loading to a single read root.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error codes carried by PathError.
const (
	CodeOutsideRoot     = "ERR_PATH_OUTSIDE_ROOT"
	CodeDeniedRead      = "ERR_DENIED_READ"
	CodeNotAFile        = "ERR_NOT_A_FILE"
	CodeUnsupportedType = "ERR_UNSUPPORTED_TYPE"
)

// PathError is a machine-readable policy violation.
type PathError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string.
func (e PathError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// deniedDirs are never readable, whatever the root.
var deniedDirs = []string{".git", ".whisperer"}

// InitRoot resolves root to an absolute, symlink-free path. An empty root
// means the working directory.
func InitRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}
	// Fall back to the absolute path if the root does not exist (yet).
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside the root. It rejects absolute inputs, parent traversal and symlink
// escapes, and denies reads under .git/ and .whisperer/.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", PathError{Code: CodeOutsideRoot, Message: "absolute paths are not allowed"}
	}

	cleaned := filepath.Clean(relPath)
	candidate := filepath.Join(absRoot, cleaned)

	// Resolve the whole candidate if it exists, otherwise its parent, so a
	// symlinked directory cannot smuggle the leaf outside the root.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if resolvedParent, err2 := filepath.EvalSymlinks(filepath.Dir(candidate)); err2 == nil {
		candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", PathError{Code: CodeOutsideRoot, Message: "requested path resolves outside the read root"}
	}

	relSlash := filepath.ToSlash(rel)
	for _, d := range deniedDirs {
		if relSlash == d || strings.HasPrefix(relSlash, d+"/") {
			return "", PathError{Code: CodeDeniedRead, Message: "reads under " + d + "/ are not allowed"}
		}
	}

	return candidate, nil
}
