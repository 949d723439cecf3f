// Package billing defines the port for the organization usage-reporting API.
package billing

import (
	"context"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/usage"
)

// Query selects a reporting window and bucket width.
type Query struct {
	Start time.Time
	End   time.Time
	Width usage.Granularity
}

// CostBucket is the summed cost of one reporting bucket, in cents.
type CostBucket struct {
	StartingAt time.Time
	Cents      int64
}

// UsageBucket is the summed token usage of one reporting bucket.
type UsageBucket struct {
	StartingAt time.Time
	Tokens     usage.Tokens
}

// Client fetches cost and usage reports.
type Client interface {
	CostReport(ctx context.Context, q Query) ([]CostBucket, error)
	UsageReport(ctx context.Context, q Query) ([]UsageBucket, error)
}
