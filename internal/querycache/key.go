package querycache

import "strings"

// Key addresses a cached read. Keys are hierarchical: invalidation and
// removal by a key also affect every key it prefixes.
type Key []string

// String joins the key segments with "/".
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix is a leading run of k's segments. The empty
// key prefixes every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both keys have the same segments.
func (k Key) Equal(o Key) bool {
	return len(k) == len(o) && k.HasPrefix(o)
}

// Clone returns a copy of k that does not share its backing array.
func (k Key) Clone() Key {
	return append(Key(nil), k...)
}
