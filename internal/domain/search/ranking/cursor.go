package ranking

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/search/mode"
)

// Cursor is the last-seen sort position of a page. Opaque to callers.
type Cursor struct {
	Score float64   `json:"s"`
	ID    string    `json:"i"`
	Epoch int64     `json:"e"`
	Sort  mode.Sort `json:"m"`
}

// Encode returns the URL-safe token form.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c) //nolint:errchkjson // plain struct, cannot fail
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, domain.NewValidation("cursor", "malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, domain.NewValidation("cursor", "malformed cursor")
	}
	if c.ID == "" || !c.Sort.IsValid() || c.Epoch <= 0 {
		return Cursor{}, domain.NewValidation("cursor", "malformed cursor")
	}
	return c, nil
}

// EpochTime returns the pinned reference time.
func (c Cursor) EpochTime() time.Time { return time.UnixMilli(c.Epoch).UTC() }

// Check rejects a cursor issued for a different sort mode.
func (c Cursor) Check(sort mode.Sort) error {
	if c.Sort != sort {
		return domain.NewValidation("cursor", "cursor was issued for sort %q", c.Sort)
	}
	return nil
}

// After reports whether (score, id) sorts strictly after the cursor position.
func (c Cursor) After(score float64, id string) bool {
	if score != c.Score {
		return score < c.Score
	}
	return id > c.ID
}

// SearchAfter returns the backend sort values that resume after the cursor.
func (c Cursor) SearchAfter() []any {
	return []any{c.Score, c.ID}
}
