package collector

import "strings"

// Suspect reports whether a process name or command line contains any of the
// configured offensive-tool patterns. Matching is case-insensitive substring;
// this is a plain heuristic over text, separate from the reconstruction model.
func Suspect(name, cmdline string, patterns []string) bool {
	haystack := strings.ToLower(name + " " + cmdline)
	for _, pat := range patterns {
		if pat != "" && strings.Contains(haystack, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
