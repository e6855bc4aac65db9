// Package davpath sanitizes and decomposes the URI paths the engine routes
// on. It never touches the filesystem; "path" here always means a URL path,
// not an OS path.
package davpath

import (
	"path"
	"strings"
)

// Sanitize normalizes raw into an absolute, safe path: it resolves "." and
// ".." segments and repeated separators, then rebuilds the path from only
// its safe components, dropping anything unsafe rather than erroring. A
// trailing slash present in raw is preserved unless normalization already
// removed it. Malformed input fails closed to "/".
func Sanitize(raw string) string {
	trailingSlash := strings.HasSuffix(raw, "/")
	cleaned := path.Clean("/" + raw)

	newPath := "/"
	for _, part := range strings.Split(cleaned, "/") {
		if !isSafeComponent(part) {
			continue
		}
		newPath = path.Join(newPath, part)
	}
	if strings.HasSuffix(newPath, "/") {
		trailingSlash = false
	}
	if trailingSlash {
		newPath += "/"
	}
	return newPath
}

// isSafeComponent reports whether part is a single non-empty path segment
// that is safe to join: no embedded separator, not "." or "..".
func isSafeComponent(part string) bool {
	return part != "" && !strings.Contains(part, "/") && part != "." && part != ".."
}

// Split decomposes a sanitized path into a collection slug and, when
// present, an item href nested under it. A path with only one segment
// yields a nil href.
func Split(p string) (collectionSlug string, itemHref *string) {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return "", nil
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 2 {
		return parts[0], &parts[1]
	}
	return parts[0], nil
}

// Unstrip rebuilds a leading-slash path from a stripped (no leading/trailing
// slash) form, optionally appending a trailing slash.
func Unstrip(stripped string, trailing bool) string {
	p := "/" + stripped
	if trailing && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// IsSafeSegment reports whether s is usable as a single path segment, e.g.
// an item href: non-empty, with no path separators or traversal markers.
func IsSafeSegment(s string) bool {
	return isSafeComponent(s)
}
