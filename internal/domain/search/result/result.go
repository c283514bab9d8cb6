package result

import "encoding/json"

// Hit is a single backend search hit.
type Hit struct {
	id     string
	score  float64
	source json.RawMessage
}

// NewHit creates a search hit. score is the backend sort score (the adjusted score
// when the backend applied the ranking plan).
func NewHit(id string, score float64, source json.RawMessage) Hit {
	return Hit{id: id, score: score, source: source}
}

// ID returns the document identifier.
func (h Hit) ID() string { return h.id }

// Score returns the ranking score.
func (h Hit) Score() float64 { return h.score }

// Source returns the raw document body.
func (h Hit) Source() json.RawMessage { return h.source }

// Page is one backend response.
type Page struct {
	hits        []Hit
	total       int64
	approximate bool
}

// NewPage creates a backend page. approximate is set when the backend reports total
// as a lower bound.
func NewPage(hits []Hit, total int64, approximate bool) Page {
	return Page{hits: hits, total: total, approximate: approximate}
}

// Hits returns the hits in backend order.
func (p Page) Hits() []Hit { return p.hits }

// Total returns the backend's match count.
func (p Page) Total() int64 { return p.total }

// Approximate reports whether Total is an estimate.
func (p Page) Approximate() bool { return p.approximate }
