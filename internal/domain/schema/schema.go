// Package schema holds the process-wide field catalog of the candidate index.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Type is the declared type of a document field.
type Type string

// Field type constants.
const (
	Keyword  Type = "keyword"
	Text     Type = "text"
	Integer  Type = "integer"
	Float    Type = "float"
	Date     Type = "date"
	Boolean  Type = "boolean"
	GeoPoint Type = "geo_point"
)

// IsValid checks if the type is supported.
func (t Type) IsValid() bool {
	switch t {
	case Keyword, Text, Integer, Float, Date, Boolean, GeoPoint:
		return true
	}
	return false
}

// IsOrdered reports whether range filters apply to the type.
func (t Type) IsOrdered() bool {
	return t == Integer || t == Float || t == Date
}

var pathRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// Field is an immutable value object describing one filterable document field.
type Field struct {
	path          string
	fieldType     Type
	nested        string
	keywordSearch bool
}

// NewField validates and creates a Field.
// nested, when set, must be a strict prefix of path: the repeated sub-document holding it.
func NewField(path string, ft Type, nested string, keywordSearch bool) (Field, error) {
	if !pathRegex.MatchString(path) {
		return Field{}, fmt.Errorf("invalid field path %q", path)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, path)
	}
	if nested != "" && !strings.HasPrefix(path, nested+".") {
		return Field{}, fmt.Errorf("field %q is not inside nested path %q", path, nested)
	}
	if keywordSearch && ft != Text && ft != Keyword {
		return Field{}, fmt.Errorf("keyword search on non-text field %q", path)
	}
	return Field{path: path, fieldType: ft, nested: nested, keywordSearch: keywordSearch}, nil
}

// Path returns the dotted backend path.
func (f Field) Path() string { return f.path }

// FieldType returns the declared type.
func (f Field) FieldType() Type { return f.fieldType }

// Nested returns the nested sub-document path, or "" for top-level fields.
func (f Field) Nested() string { return f.nested }

// IsNested reports whether the field lives inside a repeated sub-document.
func (f Field) IsNested() bool { return f.nested != "" }

// KeywordSearch reports whether free-text keywords are matched against this field.
func (f Field) KeywordSearch() bool { return f.keywordSearch }

// TextSubfield is the analyzed sub-field of keyword fields searched by keywords.
const TextSubfield = "text"

// SearchPath returns the path matched by free-text keywords: the field itself for
// text fields, its analyzed sub-field for keyword fields.
func (f Field) SearchPath() string {
	if f.fieldType == Keyword {
		return f.path + "." + TextSubfield
	}
	return f.path
}

// Catalog maps field paths to declared types. It is read-only after construction and
// safe for concurrent use.
type Catalog struct {
	fields       map[string]Field
	order        []string
	idField      string
	recencyField string
}

// NewCatalog validates and creates a Catalog.
// idField must be a keyword field (the pagination tie-break); recencyField, when set,
// must be a top-level date field.
func NewCatalog(fields []Field, idField, recencyField string) (*Catalog, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}
	c := &Catalog{
		fields:       make(map[string]Field, len(fields)),
		idField:      idField,
		recencyField: recencyField,
	}
	for _, f := range fields {
		if _, dup := c.fields[f.path]; dup {
			return nil, fmt.Errorf("duplicate field path: %s", f.path)
		}
		c.fields[f.path] = f
		c.order = append(c.order, f.path)
	}
	sort.Strings(c.order)

	id, ok := c.fields[idField]
	if !ok {
		return nil, fmt.Errorf("id field %q is not declared", idField)
	}
	if id.fieldType != Keyword || id.IsNested() {
		return nil, fmt.Errorf("id field %q must be a top-level keyword", idField)
	}
	if recencyField != "" {
		rf, ok := c.fields[recencyField]
		if !ok {
			return nil, fmt.Errorf("recency field %q is not declared", recencyField)
		}
		if rf.fieldType != Date || rf.IsNested() {
			return nil, fmt.Errorf("recency field %q must be a top-level date", recencyField)
		}
	}
	return c, nil
}

// Lookup returns the field declared at path.
func (c *Catalog) Lookup(path string) (Field, bool) {
	f, ok := c.fields[path]
	return f, ok
}

// Fields returns all fields sorted by path.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.order))
	for i, p := range c.order {
		out[i] = c.fields[p]
	}
	return out
}

// NestedPaths returns the distinct nested sub-document paths, sorted.
func (c *Catalog) NestedPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.order {
		if n := c.fields[p].nested; n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// KeywordFields returns the search paths matched by free-text keywords, sorted by field.
func (c *Catalog) KeywordFields() []string {
	var out []string
	for _, p := range c.order {
		if f := c.fields[p]; f.keywordSearch {
			out = append(out, f.SearchPath())
		}
	}
	return out
}

// IDField returns the document identifier field.
func (c *Catalog) IDField() string { return c.idField }

// RecencyField returns the date field used for recency decay ("" if none).
func (c *Catalog) RecencyField() string { return c.recencyField }
