// Package fsops loads source files for review from under a read root.
package fsops

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/code-whisperer/internal/safety"
)

// DefaultMaxRunes caps how much of a file is sent to the model.
const DefaultMaxRunes = 60_000

// TruncationMarker is appended to content cut at the rune cap.
const TruncationMarker = "\n... [truncated]"

// Extensions accepted by ReadSource. PDFs are rejected explicitly since no
// text extraction is performed.
var sourceExts = []string{
	".py", ".txt", ".md", ".json", ".go", ".js", ".ts", ".java", ".c", ".h",
	".cpp", ".rs", ".rb", ".sh", ".yaml", ".yml", ".toml", ".sql", ".html", ".css",
}

// Source is a loaded file.
type Source struct {
	Path      string // As requested, relative to the root.
	Content   string
	Truncated bool
}

// Reader reads files under a fixed root.
type Reader struct {
	root     string
	maxRunes int
}

// NewReader resolves root (empty means the working directory).
func NewReader(root string) (*Reader, error) {
	abs, err := safety.InitRoot(root)
	if err != nil {
		return nil, err
	}
	return &Reader{root: abs, maxRunes: DefaultMaxRunes}, nil
}

// Root returns the resolved read root.
func (r *Reader) Root() string {
	return r.root
}

// SetMaxRunes changes the truncation cap; n <= 0 disables it.
func (r *Reader) SetMaxRunes(n int) {
	r.maxRunes = n
}

// ReadSource reads a source file addressed relative to the root. Policy
// violations are returned as safety.PathError; I/O problems as plain errors.
func (r *Reader) ReadSource(relPath string) (Source, error) {
	absPath, err := safety.ValidateRelPath(r.root, relPath)
	if err != nil {
		return Source{}, err
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext == ".pdf" {
		return Source{}, safety.PathError{Code: safety.CodeUnsupportedType, Message: "PDF text extraction is not supported"}
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		return Source{}, err
	}
	if fi.IsDir() {
		return Source{}, safety.PathError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	if !slices.Contains(sourceExts, ext) {
		return Source{}, safety.PathError{Code: safety.CodeUnsupportedType, Message: "unsupported file type " + ext}
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return Source{}, err
	}
	if !utf8.Valid(b) {
		return Source{}, safety.PathError{Code: safety.CodeUnsupportedType, Message: "file is not valid UTF-8 text"}
	}

	src := Source{Path: relPath, Content: string(b)}
	if r.maxRunes > 0 && utf8.RuneCount(b) > r.maxRunes {
		src.Content = string([]rune(src.Content)[:r.maxRunes]) + TruncationMarker
		src.Truncated = true
	}
	return src, nil
}

// List returns the non-recursive entries of relDir, directories suffixed by "/".
func (r *Reader) List(relDir string) ([]string, error) {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := safety.ValidateRelPath(r.root, relDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
