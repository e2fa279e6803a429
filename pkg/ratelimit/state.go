// Package ratelimit tracks the catalog's daily call quota and gates requests.
// The catalog allows a fixed number of calls per key and day; exceeding it
// makes every further call fail with 429 until the next day. The counter
// lives in Redis so that overlapping invocations share it.
package ratelimit

import (
	"time"
)

// RedisKeyQuotaPrefix prefixes the per-day call counter keys.
const RedisKeyQuotaPrefix = "catalog:quota:"

// DefaultDailyLimit is the catalog's documented daily call allowance.
const DefaultDailyLimit = 3000

// QuotaWarningFraction of the limit left triggers warning logs.
const QuotaWarningFraction = 0.1

// QuotaState represents the call quota of one UTC day.
type QuotaState struct {
	// Day is the UTC date the counter belongs to (YYYY-MM-DD).
	Day string `json:"day"`

	// Used is the number of calls counted so far today.
	Used int `json:"used"`

	// Limit is the daily allowance. Zero disables the quota.
	Limit int `json:"limit"`

	// ResetAt is the start of the next UTC day.
	ResetAt time.Time `json:"reset_at"`
}

// Remaining returns the number of calls left today.
func (s *QuotaState) Remaining() int {
	if s.Limit <= 0 {
		return 0
	}
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// Exhausted returns true if no call may be made until ResetAt.
func (s *QuotaState) Exhausted() bool {
	return s.Limit > 0 && s.Used >= s.Limit
}

// NeedsWarning returns true if less than QuotaWarningFraction of the limit is left.
func (s *QuotaState) NeedsWarning() bool {
	if s.Limit <= 0 || s.Exhausted() {
		return false
	}
	return float64(s.Remaining()) < float64(s.Limit)*QuotaWarningFraction
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *QuotaState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// DayOf returns the UTC date string of t.
func DayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextReset returns the start of the UTC day following t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
