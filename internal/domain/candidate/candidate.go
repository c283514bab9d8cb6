// Package candidate holds the public projection of candidate documents.
package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
)

// Summary is the public projection of one document. Only whitelisted fields are set.
type Summary struct {
	fields map[string]any
}

// Fields returns the projected fields.
func (s Summary) Fields() map[string]any { return s.fields }

// Get returns a top-level projected field.
func (s Summary) Get(name string) (any, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// MarshalJSON renders the projected fields with sorted keys.
func (s Summary) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.fields)
}

var pathRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// node is one segment of the whitelist tree. A leaf admits the whole sub-value.
type node struct {
	leaf     bool
	children map[string]*node
}

func (n *node) add(path string) {
	cur := n
	for _, seg := range strings.Split(path, ".") {
		if cur.leaf {
			return
		}
		if cur.children == nil {
			cur.children = make(map[string]*node)
		}
		next, ok := cur.children[seg]
		if !ok {
			next = &node{}
			cur.children[seg] = next
		}
		cur = next
	}
	cur.leaf = true
	cur.children = nil
}

// Shaper projects documents through per-scope whitelists. Safe for concurrent use.
type Shaper struct {
	byScope map[string][]string
}

// NewShaper validates whitelist paths and creates a Shaper.
func NewShaper(whitelists map[string][]string) (*Shaper, error) {
	byScope := make(map[string][]string, len(whitelists))
	for sc, paths := range whitelists {
		for _, p := range paths {
			if !pathRegex.MatchString(p) {
				return nil, fmt.Errorf("scope %q: invalid whitelist path %q", sc, p)
			}
		}
		cp := make([]string, len(paths))
		copy(cp, paths)
		sort.Strings(cp)
		byScope[sc] = cp
	}
	return &Shaper{byScope: byScope}, nil
}

// Allowed returns the union of whitelisted paths for scopes, sorted.
func (s *Shaper) Allowed(scopes scope.Set) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sc := range scopes.Names() {
		for _, p := range s.byScope[sc] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Shape projects source (a JSON object) onto the caller's whitelist. Fields not
// whitelisted are dropped; a non-object source is a serialization error.
func (s *Shaper) Shape(scopes scope.Set, source json.RawMessage) (Summary, error) {
	dec := json.NewDecoder(bytes.NewReader(source))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		if err == nil {
			err = errors.New("null document")
		}
		return Summary{}, domain.MarkSerialization(errors.Wrap(err, "decode document source"))
	}

	root := &node{}
	for _, p := range s.Allowed(scopes) {
		root.add(p)
	}
	if len(root.children) == 0 {
		return Summary{fields: map[string]any{}}, nil
	}
	out, _ := project(doc, root).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return Summary{fields: out}, nil
}

func project(v any, n *node) any {
	if n.leaf {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any)
		for k, child := range n.children {
			sub, ok := t[k]
			if !ok {
				continue
			}
			if p := project(sub, child); p != nil {
				out[k] = p
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, el := range t {
			if p := project(el, n); p != nil {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
