package cache

import (
	"fmt"
	"strings"
)

// Policy names an in-process backend.
type Policy string

const (
	PolicyLRU  Policy = "lru"
	PolicyNoop Policy = "noop"
)

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLRU, PolicyNoop:
		return p, nil
	case "":
		return PolicyLRU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// New builds a LoadingCache for the policy. A non-positive capacity always
// yields a Noop cache.
func New[K comparable, V any](policy Policy, capacity int) (LoadingCache[K, V], error) {
	switch policy {
	case PolicyNoop:
		return NewNoop[K, V](), nil
	case PolicyLRU, "":
		if capacity <= 0 {
			return NewNoop[K, V](), nil
		}
		return NewLRU[K, V](capacity), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}
