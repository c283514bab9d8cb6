package talentsearch

import (
	"context"
	"time"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status  string            `json:"status"` // "ok", "degraded", "error"
	Checks  map[string]string `json:"checks"` // component → "ok"/"error"
	Version string            `json:"version"`
}

// Health fetches the server health report. An unhealthy server answers 503, which is
// returned as a HealthStatus rather than an error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, nil, err) }()

	err = c.get(ctx, "/health", nil, false, &hs)
	if IsRetryable(err) {
		return HealthStatus{Status: "error"}, nil
	}
	return hs, err
}
