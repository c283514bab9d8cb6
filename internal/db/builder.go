package db

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition with one shard.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:   name,
			Shards: 1,
		},
	}
}

// Shards sets the primary shard count.
func (b *IndexBuilder) Shards(n int) *IndexBuilder {
	b.def.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *IndexBuilder) Replicas(n int) *IndexBuilder {
	b.def.Replicas = n
	return b
}

// Nested declares path as a nested sub-document.
func (b *IndexBuilder) Nested(path string) *IndexBuilder {
	b.def.NestedPaths = append(b.def.NestedPaths, path)
	return b
}

// ID sets the document identifier field.
func (b *IndexBuilder) ID(field string) *IndexBuilder {
	b.def.IDField = field
	return b
}

// Keyword adds a KEYWORD field.
func (b *IndexBuilder) Keyword(name string) *IndexBuilder {
	return b.field(name, IndexFieldKeyword)
}

// KeywordWithText adds a KEYWORD field with an analyzed text sub-field.
func (b *IndexBuilder) KeywordWithText(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:           name,
		Type:           IndexFieldKeyword,
		Analyzer:       AnalyzerTrigrams,
		SearchAnalyzer: AnalyzerWords,
		TextSubfield:   true,
	})
	return b
}

// Text adds a TEXT field indexed with trigrams and searched by words.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:           name,
		Type:           IndexFieldText,
		Analyzer:       AnalyzerTrigrams,
		SearchAnalyzer: AnalyzerWords,
	})
	return b
}

// Long adds an integer field.
func (b *IndexBuilder) Long(name string) *IndexBuilder {
	return b.field(name, IndexFieldLong)
}

// Double adds a float field.
func (b *IndexBuilder) Double(name string) *IndexBuilder {
	return b.field(name, IndexFieldDouble)
}

// Date adds a date field.
func (b *IndexBuilder) Date(name string) *IndexBuilder {
	return b.field(name, IndexFieldDate)
}

// Boolean adds a boolean field.
func (b *IndexBuilder) Boolean(name string) *IndexBuilder {
	return b.field(name, IndexFieldBoolean)
}

// GeoPoint adds a geo_point field.
func (b *IndexBuilder) GeoPoint(name string) *IndexBuilder {
	return b.field(name, IndexFieldGeoPoint)
}

func (b *IndexBuilder) field(name string, t IndexFieldType) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: t})
	return b
}

// FromCatalog adds every catalog field with its mapped type and declares nested paths.
// Keyword fields with keyword search get an analyzed text sub-field. The catalog's
// identifier becomes the index ID field.
func (b *IndexBuilder) FromCatalog(c *schema.Catalog) *IndexBuilder {
	b.ID(c.IDField())
	for _, p := range c.NestedPaths() {
		b.Nested(p)
	}
	for _, f := range c.Fields() {
		switch f.FieldType() {
		case schema.Text:
			b.Text(f.Path())
		case schema.Keyword:
			if f.KeywordSearch() {
				b.KeywordWithText(f.Path())
			} else {
				b.Keyword(f.Path())
			}
		case schema.Integer:
			b.Long(f.Path())
		case schema.Float:
			b.Double(f.Path())
		case schema.Date:
			b.Date(f.Path())
		case schema.Boolean:
			b.Boolean(f.Path())
		case schema.GeoPoint:
			b.GeoPoint(f.Path())
		}
	}
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a debug representation, e.g. "PUT talents shards=1 nested=[experience] id:keyword".
func (idx *IndexDefinition) String() string {
	parts := []string{"PUT", idx.Name, fmt.Sprintf("shards=%d", idx.Shards)}
	if len(idx.NestedPaths) > 0 {
		parts = append(parts, "nested=["+strings.Join(idx.NestedPaths, ",")+"]")
	}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name+":"+string(f.Type))
	}
	return strings.Join(parts, " ")
}
