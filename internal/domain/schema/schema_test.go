package schema

import (
	"strings"
	"testing"
)

func mustField(t *testing.T, path string, ft Type, nested string, kw bool) Field {
	t.Helper()
	f, err := NewField(path, ft, nested, kw)
	if err != nil {
		t.Fatalf("NewField(%q): %v", path, err)
	}
	return f
}

func TestNewField_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		ft      Type
		nested  string
		kw      bool
		errPart string
	}{
		{"empty path", "", Keyword, "", false, "invalid field path"},
		{"bad chars", "skills!", Keyword, "", false, "invalid field path"},
		{"bad type", "skills", Type("blob"), "", false, "invalid field type"},
		{"nested mismatch", "company", Keyword, "experience", false, "not inside nested path"},
		{"keyword search on int", "years", Integer, "", true, "keyword search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewField(tt.path, tt.ft, tt.nested, tt.kw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %q, want substring %q", err, tt.errPart)
			}
		})
	}
}

func TestNewCatalog(t *testing.T) {
	c, err := NewCatalog([]Field{
		mustField(t, "id", Keyword, "", false),
		mustField(t, "skills", Keyword, "", true),
		mustField(t, "summary", Text, "", true),
		mustField(t, "experience.company", Keyword, "experience", false),
		mustField(t, "experience.years", Integer, "experience", false),
		mustField(t, "added_at", Date, "", false),
	}, "id", "added_at")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := c.Lookup("experience.years")
	if !ok {
		t.Fatal("expected field")
	}
	if f.Nested() != "experience" || !f.IsNested() {
		t.Errorf("nested = %q", f.Nested())
	}
	if got := c.NestedPaths(); len(got) != 1 || got[0] != "experience" {
		t.Errorf("NestedPaths() = %v", got)
	}
	if got := c.KeywordFields(); len(got) != 2 || got[0] != "skills.text" || got[1] != "summary" {
		t.Errorf("KeywordFields() = %v", got)
	}
	if c.IDField() != "id" || c.RecencyField() != "added_at" {
		t.Errorf("id=%q recency=%q", c.IDField(), c.RecencyField())
	}
	fields := c.Fields()
	if fields[0].Path() != "added_at" {
		t.Errorf("Fields() not sorted: first = %q", fields[0].Path())
	}
}

func TestNewCatalog_Errors(t *testing.T) {
	id := mustField(t, "id", Keyword, "", false)
	num := mustField(t, "num", Integer, "", false)

	tests := []struct {
		name    string
		fields  []Field
		idField string
		recency string
		errPart string
	}{
		{"empty", nil, "id", "", "at least one"},
		{"duplicate", []Field{id, id}, "id", "", "duplicate"},
		{"missing id", []Field{num}, "id", "", "not declared"},
		{"non keyword id", []Field{num}, "num", "", "top-level keyword"},
		{"missing recency", []Field{id}, "id", "added_at", "recency field"},
		{"non date recency", []Field{id, num}, "id", "num", "top-level date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.fields, tt.idField, tt.recency)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %q, want substring %q", err, tt.errPart)
			}
		})
	}
}
