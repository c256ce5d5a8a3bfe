// Package naming produces the branded, collision-free output filenames used
// within one job.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// BrandPrefix is prepended to every output filename.
const BrandPrefix = "ImageForge"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeStem reduces a client-supplied filename to a filesystem-safe stem.
// Path components and the extension are dropped, anything outside
// [A-Za-z0-9_.-] collapses to an underscore, and an empty survivor becomes
// "image".
func SanitizeStem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "_.-")
	if stem == "" {
		return "image"
	}
	return stem
}

// Resolver assigns output filenames that are unique case-insensitively
// within one job. It is not safe for concurrent use; a job processes its
// files strictly in order, so it never needs to be.
type Resolver struct {
	used map[string]bool
}

// NewResolver returns an empty resolver. Scope one per job; names are never
// tracked across jobs.
func NewResolver() *Resolver {
	return &Resolver{used: make(map[string]bool)}
}

// Resolve returns the branded output name for originalName with the given
// extension, appending a numeric suffix on collision. The returned name is
// recorded so later calls in the same job avoid it.
func (r *Resolver) Resolve(originalName, outputExt string) string {
	stem := SanitizeStem(originalName)
	candidate := fmt.Sprintf("%s_%s.%s", BrandPrefix, stem, outputExt)
	for index := 2; r.used[strings.ToLower(candidate)]; index++ {
		candidate = fmt.Sprintf("%s_%s_%d.%s", BrandPrefix, stem, index, outputExt)
	}
	r.used[strings.ToLower(candidate)] = true
	return candidate
}
