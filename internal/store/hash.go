package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeSourcesHash computes a deterministic hash over named sources.
// Iteration order of the map does not affect the result.
func ComputeSourcesHash(sources map[string][]byte) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "source:%s:%d\n", name, len(sources[name]))
		h.Write(sources[name])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
