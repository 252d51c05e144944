package extract

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// Format defines a document format that can be turned into plain text.
type Format interface {
	Name() string
	// Extensions returns the literal, case-sensitive extensions (without the dot)
	// handled by this format.
	Extensions() []string
	Extract(ctx context.Context, data []byte) (string, error)
}

var registry = map[string]Format{}

// Register adds a format to the registry. A later registration for the same
// extension replaces the earlier one.
func Register(f Format) {
	for _, ext := range f.Extensions() {
		registry[ext] = f
	}
}

// Lookup returns the format registered for ext.
func Lookup(ext string) (Format, bool) {
	f, ok := registry[ext]
	return f, ok
}

// Formats returns the supported extensions, sorted.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// SplitName separates the base name of filename into its normalized title and the
// token following the last dot. Names without a dot, or whose only dot is leading,
// have no extension.
func SplitName(filename string) (title, ext string) {
	base := filepath.Base(filename)
	i := strings.LastIndex(base, ".")
	if i <= 0 {
		return base, ""
	}
	return base[:i], base[i+1:]
}
