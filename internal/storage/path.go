package storage

import "strings"

const (
	rootedStorageSegment = "/storage/"
	storageSegment       = "storage/"
)

// NormalizeKey turns a submitted image path or URL into a canonical storage key.
// Everything after the last "/storage/" wins; otherwise a leading "storage/"
// is stripped; anything else is returned unchanged. "storage/" only counts as
// a whole path segment, so "mystorage/a.png" is already canonical.
// External URLs must be filtered with IsExternalURL before calling this.
func NormalizeKey(p string) string {
	if i := strings.LastIndex(p, rootedStorageSegment); i >= 0 {
		return p[i+len(rootedStorageSegment):]
	}
	if strings.HasPrefix(p, storageSegment) {
		return p[len(storageSegment):]
	}
	return p
}

// IsExternalURL reports whether p is an absolute http(s) URL.
func IsExternalURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// PublicURL renders a key as a browser-loadable URL under base.
// Keys that already start with "http" pass through unchanged.
func PublicURL(base, key string) string {
	if strings.HasPrefix(key, "http") {
		return key
	}
	base = strings.TrimRight(base, "/")
	key = strings.TrimLeft(key, "/")
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}
