// Package usage defines organization-wide cost and token metering records.
package usage

import (
	"sort"
	"time"
)

// Granularity selects daily or hourly buckets.
type Granularity string

const (
	Daily  Granularity = "1d"
	Hourly Granularity = "1h"
)

// DefaultDailyBudgetCents applies when a tenant has no budget configured.
const DefaultDailyBudgetCents = 2000

// Tokens holds the four token counters reported per bucket.
type Tokens struct {
	Input         int64 `json:"input_tokens"`
	Output        int64 `json:"output_tokens"`
	CacheRead     int64 `json:"cache_read_tokens"`
	CacheCreation int64 `json:"cache_creation_tokens"`
}

// Add returns the element-wise sum of t and o.
func (t Tokens) Add(o Tokens) Tokens {
	return Tokens{
		Input:         t.Input + o.Input,
		Output:        t.Output + o.Output,
		CacheRead:     t.CacheRead + o.CacheRead,
		CacheCreation: t.CacheCreation + o.CacheCreation,
	}
}

// Record is one stored bucket. Key is a YYYY-MM-DD date for daily records and
// an RFC 3339 bucket start for hourly records.
type Record struct {
	Tokens
	Key       string    `json:"key"`
	CostCents int64     `json:"cost_cents"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Today is the current day's record together with the tenant's budget.
type Today struct {
	Record
	DailyBudgetCents int `json:"daily_budget_cents"`
}

// Bucket is the reconciled state of one key after a fetch. A nil field means
// the corresponding report was not available and the stored value must be kept.
type Bucket struct {
	Key       string
	CostCents *int64
	Tokens    *Tokens
}

// Accumulator merges cost and usage report results per bucket key so that
// each bucket is written once per reconciliation.
type Accumulator struct {
	buckets map[string]*Bucket
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{buckets: make(map[string]*Bucket)}
}

func (a *Accumulator) bucket(key string) *Bucket {
	b, ok := a.buckets[key]
	if !ok {
		b = &Bucket{Key: key}
		a.buckets[key] = b
	}
	return b
}

// AddCost adds cents to the bucket's cost.
func (a *Accumulator) AddCost(key string, cents int64) {
	b := a.bucket(key)
	if b.CostCents == nil {
		b.CostCents = new(int64)
	}
	*b.CostCents += cents
}

// AddTokens adds t to the bucket's token counters.
func (a *Accumulator) AddTokens(key string, t Tokens) {
	b := a.bucket(key)
	if b.Tokens == nil {
		b.Tokens = &Tokens{}
	}
	*b.Tokens = b.Tokens.Add(t)
}

// Buckets returns the accumulated buckets ordered by key.
func (a *Accumulator) Buckets() []Bucket {
	out := make([]Bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len reports the number of distinct buckets.
func (a *Accumulator) Len() int { return len(a.buckets) }

// DateKey formats t as a daily bucket key.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// HourKey formats t as an hourly bucket key.
func HourKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Window is a half-open [Start, End) reconciliation range.
type Window struct {
	Start time.Time
	End   time.Time
}

// DailyWindow spans midnight two days before now up to midnight tomorrow, UTC.
// The overlap absorbs timezone skew at day boundaries.
func DailyWindow(now time.Time) Window {
	day := now.UTC().Truncate(24 * time.Hour)
	return Window{Start: day.AddDate(0, 0, -2), End: day.AddDate(0, 0, 1)}
}

// HourlyWindow spans the trailing 48 hours.
func HourlyWindow(now time.Time) Window {
	now = now.UTC()
	return Window{Start: now.Add(-48 * time.Hour), End: now}
}

// BackfillWindow spans the trailing n days.
func BackfillWindow(now time.Time, days int) Window {
	now = now.UTC()
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}
