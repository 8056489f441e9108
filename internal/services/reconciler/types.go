package reconciler

import "time"

// Outcome classifies what the reconciler did with one transaction.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"   // not eligible for an automatic payout
	OutcomeDuplicate Outcome = "duplicate" // another delivery already claimed it
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnknown   Outcome = "unknown" // dispatch outcome unknown, sweep retries
	OutcomeDeferred  Outcome = "deferred" // no recipient configured yet
)

// Config tunes the reconciler's sweep behavior.
type Config struct {
	// SweepInterval is the period between sweep runs.
	SweepInterval time.Duration
	// StaleAfter is how long a pending unsealed withdrawal must sit
	// before the sweep re-dispatches it.
	StaleAfter time.Duration
	// BatchSize caps how many rows each sweep query pulls.
	BatchSize int
}

func (c *Config) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

// SweepStats summarizes one sweep run.
type SweepStats struct {
	EarningsPaid       int
	EarningsFailed     int
	DeductionsApplied  int
	WithdrawalsResumed int
	WithdrawalsSettled int
}
