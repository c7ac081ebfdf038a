package simulation

import "strings"

const groupPrefix = "GROUP_"

// CanonicalID is the lookup form of a component id. Every id entering the
// store from the backend or the viewer passes through it.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IsGroup reports whether id names a component group.
func IsGroup(id string) bool {
	return strings.HasPrefix(strings.ToUpper(id), groupPrefix)
}

// ConnectionID keys a connection style by its endpoints.
func ConnectionID(from, to string) string {
	return CanonicalID(from) + "_" + CanonicalID(to)
}

func canonicalSeries(components map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(components))
	for k, v := range components {
		out[CanonicalID(k)] = v
	}
	return out
}
