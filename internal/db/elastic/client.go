// Package elastic implements db.Backend over Elasticsearch 8 via go-elasticsearch.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/talentsearch/internal/db"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs    []string
	Username string
	Password string
	// Transport overrides the HTTP transport (nil uses the client default).
	Transport http.RoundTripper
}

// Store implements db.Backend. Retries are left to the caller: the client's own
// retry loop is disabled so one logical fetch maps to caller-visible attempts.
type Store struct {
	client *elasticsearch.Client
}

// NewStore creates an Elasticsearch store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer drain(res)
	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: statusError(res)}
	}
	return nil
}

// Close releases idle connections. The client holds no other resources.
func (s *Store) Close() {
	if t, ok := s.client.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// statusError reads an error response into a db.StatusError. Body must be unread.
func statusError(res *esapi.Response) *db.StatusError {
	se := &db.StatusError{Status: res.StatusCode}
	if res.Body == nil {
		return se
	}
	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&eb); err == nil {
		se.Type = eb.Error.Type
		se.Reason = eb.Error.Reason
	}
	return se
}

func drain(res *esapi.Response) {
	if res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
