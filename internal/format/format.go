// Package format maps file extensions to codec identifiers and defines the
// format sets the service accepts and emits.
package format

import "strings"

// Input extensions the service accepts.
var AllowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
	"bmp": true, "tiff": true, "ico": true, "heic": true,
}

// Output formats the convert operation supports.
var ConvertTargets = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "webp": true, "gif": true,
	"bmp": true, "tiff": true, "ico": true, "pdf": true,
}

// Output formats the compress operation supports.
var CompressTargets = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true,
}

// Formats that carry a lossy quality parameter, i.e. the ones the
// size-targeted compression solver can search over.
var QualityTargets = map[string]bool{
	"jpg": true, "jpeg": true, "webp": true,
}

// FromName returns the lowercase extension of a filename without the dot,
// or the empty string when the name has none.
func FromName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Normalize lowercases an extension and strips any leading dot.
func Normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
