// Package scope models the permission scopes resolved from a caller credential.
package scope

import (
	"context"
	"sort"
	"strings"
)

// Search is the scope required to run candidate searches.
const Search = "search"

// Set is an immutable, sorted set of scope names.
type Set struct {
	names []string
}

// NewSet creates a Set, dropping blanks and duplicates.
func NewSet(names ...string) Set {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return Set{names: out}
}

// Parse splits a space-separated scope claim.
func Parse(claim string) Set {
	return NewSet(strings.Fields(claim)...)
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Names returns the sorted scope names.
func (s Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// IsEmpty reports whether the set has no scopes.
func (s Set) IsEmpty() bool { return len(s.names) == 0 }

func (s Set) String() string { return strings.Join(s.names, " ") }

type ctxKey struct{}

// ContextWithScopes returns a context carrying the caller's scopes.
func ContextWithScopes(ctx context.Context, s Set) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the caller's scopes. ok is false when the request was never
// authenticated.
func FromContext(ctx context.Context) (Set, bool) {
	s, ok := ctx.Value(ctxKey{}).(Set)
	return s, ok
}
