// Package memory implements db.Backend in process. It evaluates compiled query trees
// directly against JSON documents and is used for local runs and tests.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/result"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

type document struct {
	raw    json.RawMessage
	fields map[string]any
}

type index struct {
	def  *db.IndexDefinition
	docs []document
}

// Store is an in-memory search backend. Writes happen at load time only.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{indexes: make(map[string]*index)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// CreateIndex registers an empty index.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = &index{def: def}
	return nil
}

// DropIndex removes an index and its documents.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists checks if the index exists.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// Load appends JSON object documents to an existing index. When the index declares
// an ID field every document must carry a non-empty string there; the batch is
// rejected as a whole otherwise.
func (s *Store) Load(name string, docs []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		return db.ErrIndexNotFound
	}

	parsed := make([]document, 0, len(docs))
	for i, raw := range docs {
		fields, err := decodeObject(raw, idx.def.IDField)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		parsed = append(parsed, document{raw: raw, fields: fields})
	}
	idx.docs = append(idx.docs, parsed...)
	return nil
}

// LoadFile loads a JSON array of documents from path.
func (s *Store) LoadFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return s.Load(name, docs)
}

func decodeObject(raw json.RawMessage, idField string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("document is not an object")
	}
	if idField == "" {
		return m, nil
	}
	if id, ok := m[idField].(string); !ok || id == "" {
		return nil, fmt.Errorf("%s must be a non-empty string, got %v", idField, m[idField])
	}
	return m, nil
}

// Search evaluates the query against every document, scores matches with the plan
// and returns up to Size hits after SearchAfter in (score desc, id asc) order.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Index == "" || q.IDField == "" {
		return nil, fmt.Errorf("index and id field are required")
	}
	if q.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[q.Index]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: &db.StatusError{
			Status: 404, Type: "index_not_found_exception", Reason: "no such index [" + q.Index + "]",
		}}
	}

	after, err := cursorOf(q.SearchAfter)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: &db.StatusError{
			Status: 400, Type: "illegal_argument_exception", Reason: err.Error(),
		}}
	}

	var matched []result.Hit
	for _, d := range idx.docs {
		if err := ctx.Err(); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		base, ok := evalQuery(q.Query, d.fields)
		if !ok {
			continue
		}
		id, _ := d.fields[q.IDField].(string)
		score := adjusted(q.Plan, base, d.fields)
		matched = append(matched, result.NewHit(id, score, d.raw))
	}

	total := int64(len(matched))
	ranking.SortHits(matched)
	out := &db.SearchResult{Total: total}
	for _, h := range matched {
		if after != nil && !after.After(h.Score(), h.ID()) {
			continue
		}
		out.Hits = append(out.Hits, db.SearchHit{ID: h.ID(), Score: h.Score(), Source: h.Source()})
		if len(out.Hits) == q.Size {
			break
		}
	}
	return out, nil
}

func cursorOf(sa []any) (*ranking.Cursor, error) {
	if len(sa) == 0 {
		return nil, nil
	}
	if len(sa) != 2 {
		return nil, fmt.Errorf("search_after needs 2 values, got %d", len(sa))
	}
	score, ok1 := sa[0].(float64)
	id, ok2 := sa[1].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("search_after must be [score, id]")
	}
	return &ranking.Cursor{Score: score, ID: id}, nil
}

func adjusted(plan ranking.Plan, base float64, doc map[string]any) float64 {
	t, hasTime := recency(plan, doc)
	return plan.Adjusted(base, t, hasTime, func(b ranking.Boost) bool {
		return evalClause(query.Scoped(b.Criterion), doc, "")
	})
}
