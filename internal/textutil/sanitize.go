package textutil

import (
	"fmt"
	"path"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"#", "",
	"%", "",
)

// SanitizeFileName reduces an uploaded name to its base name and strips
// characters that are unsafe in paths and object keys. Empty results fall back
// to the supplied default.
func SanitizeFileName(name, fallback string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	if name == "" || name == "." || name == ".." || name == "/" {
		return fallback
	}
	return name
}

// UniqueNames returns names with duplicates suffixed -2, -3, ... before the
// extension, preserving order. The first occurrence keeps its name.
func UniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		candidate := name
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}
