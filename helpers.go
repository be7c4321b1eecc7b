package spacetraveling

import "strings"

// safeSlug reports whether slug can be used as a single path element on disk.
func safeSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." &&
		!strings.ContainsAny(slug, `/\`) && !strings.ContainsRune(slug, 0)
}
