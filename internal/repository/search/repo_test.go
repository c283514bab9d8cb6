package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/db"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/query"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/ranking"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	last     *db.SearchQuery
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.last = q
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestFetch_MapsHits(t *testing.T) {
	ms := &mockStore{searchFn: func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total:            42,
			TotalApproximate: true,
			Hits: []db.SearchHit{
				{ID: "c1", Score: 2.5, Source: json.RawMessage(`{"id":"c1"}`)},
				{ID: "", Score: 1},
				{ID: "c2", Score: 1.5, Source: json.RawMessage(`{"id":"c2"}`)},
			},
		}, nil
	}}
	repo := New(ms, "talents", "id")
	plan := ranking.NewPlan(mode.Relevance, epoch, 0, "", nil, nil)

	page, err := repo.Fetch(context.Background(), query.Query{}, plan, 21, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Hits()) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(page.Hits()))
	}
	if page.Hits()[0].ID() != "c1" || page.Hits()[0].Score() != 2.5 {
		t.Errorf("unexpected first hit %s/%v", page.Hits()[0].ID(), page.Hits()[0].Score())
	}
	if page.Total() != 42 || !page.Approximate() {
		t.Errorf("expected approximate total 42, got %d/%v", page.Total(), page.Approximate())
	}

	if ms.last.Index != "talents" || ms.last.IDField != "id" || ms.last.Size != 21 {
		t.Errorf("unexpected query %+v", ms.last)
	}
	if ms.last.SearchAfter != nil {
		t.Errorf("expected no search_after, got %v", ms.last.SearchAfter)
	}
}

func TestFetch_PassesCursor(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "talents", "id")
	plan := ranking.NewPlan(mode.Relevance, epoch, 0, "", nil, nil)
	cur := &ranking.Cursor{Score: 1.25, ID: "c9", Epoch: epoch.UnixMilli(), Sort: mode.Relevance}

	if _, err := repo.Fetch(context.Background(), query.Query{}, plan, 5, cur); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	sa := ms.last.SearchAfter
	if len(sa) != 2 || sa[0] != 1.25 || sa[1] != "c9" {
		t.Errorf("unexpected search_after %v", sa)
	}
}

func TestFetch_WrapsError(t *testing.T) {
	backend := &db.StatusError{Status: 503, Type: "unavailable", Reason: "busy"}
	ms := &mockStore{searchFn: func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: backend}
	}}
	repo := New(ms, "talents", "id")

	_, err := repo.Fetch(context.Background(), query.Query{}, ranking.Plan{}, 1, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var se *db.StatusError
	if !errors.As(err, &se) || se.Status != 503 {
		t.Errorf("expected status error to survive wrapping, got %v", err)
	}
}
