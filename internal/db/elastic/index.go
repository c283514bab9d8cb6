package elastic

import (
	"context"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
)

const dateFormat = "strict_date_optional_time||epoch_millis"

// CreateIndex creates the index with analysis settings and a mapping derived from def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	res, err := s.client.Indices.Create(def.Name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(esutil.NewJSONReader(RenderIndex(def))),
	)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	defer drain(res)
	if res.IsError() {
		se := statusError(res)
		if se.Type == "resource_already_exists_exception" {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: se}
	}
	return nil
}

// DropIndex deletes the index.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	res, err := s.client.Indices.Delete([]string{name}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	defer drain(res)
	if res.StatusCode == http.StatusNotFound {
		return db.ErrIndexNotFound
	}
	if res.IsError() {
		return &db.Error{Op: db.OpDropIndex, Err: statusError(res)}
	}
	return nil
}

// IndexExists checks if the index exists.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.client.Indices.Exists([]string{name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	defer drain(res)
	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		return false, &db.Error{Op: db.OpIndexExists, Err: statusError(res)}
	}
	return true, nil
}

// RenderIndex builds the index creation body: trigram/word analyzers and a property
// tree where nested paths become nested objects.
func RenderIndex(def *db.IndexDefinition) map[string]any {
	nested := make(map[string]bool, len(def.NestedPaths))
	for _, p := range def.NestedPaths {
		nested[p] = true
	}

	root := map[string]any{}
	for i := range def.Fields {
		f := &def.Fields[i]
		segs := strings.Split(f.Name, ".")
		props := root
		for j := 0; j < len(segs)-1; j++ {
			path := strings.Join(segs[:j+1], ".")
			obj, ok := props[segs[j]].(map[string]any)
			if !ok {
				obj = map[string]any{"properties": map[string]any{}}
				if nested[path] {
					obj["type"] = "nested"
				}
				props[segs[j]] = obj
			}
			props = obj["properties"].(map[string]any)
		}
		props[segs[len(segs)-1]] = renderField(f)
	}

	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   def.Shards,
			"number_of_replicas": def.Replicas,
			"index":              map[string]any{"max_ngram_diff": 18},
			"analysis": map[string]any{
				"filter": map[string]any{
					"trigrams_filter": map[string]any{"type": "ngram", "min_gram": 2, "max_gram": 20},
					"words_filter":    map[string]any{"type": "word_delimiter", "preserve_original": true},
				},
				"analyzer": map[string]any{
					db.AnalyzerTrigrams: map[string]any{
						"type":      "custom",
						"tokenizer": "whitespace",
						"filter":    []string{"lowercase", "words_filter", "trigrams_filter"},
					},
					db.AnalyzerWords: map[string]any{
						"type":      "custom",
						"tokenizer": "whitespace",
						"filter":    []string{"lowercase", "words_filter"},
					},
				},
			},
		},
		"mappings": map[string]any{"properties": root},
	}
}

func renderField(f *db.IndexField) map[string]any {
	m := map[string]any{"type": string(f.Type)}
	switch f.Type {
	case db.IndexFieldText:
		if f.Analyzer != "" {
			m["analyzer"] = f.Analyzer
		}
		if f.SearchAnalyzer != "" {
			m["search_analyzer"] = f.SearchAnalyzer
		}
	case db.IndexFieldKeyword:
		if f.TextSubfield {
			m["fields"] = map[string]any{
				schema.TextSubfield: map[string]any{
					"type":            string(db.IndexFieldText),
					"analyzer":        f.Analyzer,
					"search_analyzer": f.SearchAnalyzer,
				},
			}
		}
	case db.IndexFieldDate:
		m["format"] = dateFormat
	}
	return m
}
