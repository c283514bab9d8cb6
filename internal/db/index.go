package db

import (
	"errors"
	"strconv"
	"strings"
)

// IndexFieldType enumerates supported index field types.
type IndexFieldType string

const (
	// IndexFieldKeyword is an exact-match string field.
	IndexFieldKeyword IndexFieldType = "keyword"
	// IndexFieldText is an analyzed full-text field.
	IndexFieldText IndexFieldType = "text"
	// IndexFieldLong is a 64-bit integer field.
	IndexFieldLong IndexFieldType = "long"
	// IndexFieldDouble is a 64-bit float field.
	IndexFieldDouble IndexFieldType = "double"
	// IndexFieldDate is a date field.
	IndexFieldDate IndexFieldType = "date"
	// IndexFieldBoolean is a boolean field.
	IndexFieldBoolean IndexFieldType = "boolean"
	// IndexFieldGeoPoint is a lat/lon field.
	IndexFieldGeoPoint IndexFieldType = "geo_point"
)

// Analyzer names declared by every index.
const (
	AnalyzerTrigrams = "trigrams"
	AnalyzerWords    = "words"
)

// IndexField describes a single field in an index mapping.
type IndexField struct {
	Name string // dotted path
	Type IndexFieldType

	// TEXT options
	Analyzer       string
	SearchAnalyzer string

	// KEYWORD options: adds an analyzed "<name>.text" sub-field
	TextSubfield bool
}

// IndexDefinition is a complete index definition used by CreateIndex.
type IndexDefinition struct {
	Name     string
	Shards   int
	Replicas int
	// NestedPaths are object paths mapped as nested sub-documents.
	NestedPaths []string
	Fields      []IndexField
	// IDField names the string field that identifies each document. Optional.
	IDField string
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	if idx.Shards < 0 || idx.Replicas < 0 {
		return errors.New("shards and replicas must not be negative")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}
	for _, p := range idx.NestedPaths {
		if seen[p] {
			return errors.New("nested path is also a field: " + p)
		}
		if !hasFieldUnder(idx.Fields, p) {
			return errors.New("nested path has no fields: " + p)
		}
	}
	return nil
}

func hasFieldUnder(fields []IndexField, path string) bool {
	for i := range fields {
		if strings.HasPrefix(fields[i].Name, path+".") {
			return true
		}
	}
	return false
}

// IsValidIdentifier returns true if s is a lowercase index name matching [a-z0-9_.-]+
// and does not start with '-', '_' or '.'.
func IsValidIdentifier(s string) bool {
	if s == "" || s[0] == '-' || s[0] == '_' || s[0] == '.' {
		return false
	}
	for _, r := range s {
		isAlpha := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '-' || r == '.'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
