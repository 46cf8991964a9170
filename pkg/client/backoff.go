package client

import (
	"math"
	"sync"
	"time"
)

const (
	defaultMaxAttempts   = 3
	defaultBaseDelay     = time.Second
	defaultMaxDelay      = 30 * time.Second
	defaultBackoffFactor = 2.0
)

// RetryPolicy describes how retry delays escalate for a URL.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
}

// DefaultRetryPolicy returns 3 attempts starting at 1s, doubling, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		Factor:      defaultBackoffFactor,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Factor < 1 {
		p.Factor = def.Factor
	}
	return p
}

// Delay returns min(base * factor^n, max).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n))
	if d >= float64(p.MaxDelay) || math.IsInf(d, 1) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Backoff is the per-URL retry state. The entry for a URL counts the
// retries scheduled since its last success.
type Backoff struct {
	mu      sync.Mutex
	policy  RetryPolicy
	retries map[string]int
}

// NewBackoff creates retry state governed by policy.
func NewBackoff(policy RetryPolicy) *Backoff {
	return &Backoff{
		policy:  policy.withDefaults(),
		retries: make(map[string]int),
	}
}

// Next reserves a retry for url and returns how long to wait before it.
// It returns false once the URL has used up its attempts.
func (b *Backoff) Next(url string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.retries[url]
	if n >= b.policy.MaxAttempts {
		return 0, false
	}
	b.retries[url] = n + 1
	return b.policy.Delay(n), true
}

// Retries returns the number of retries scheduled for url since its last success.
func (b *Backoff) Retries(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retries[url]
}

// Reset clears the state of url after a success.
func (b *Backoff) Reset(url string) {
	b.mu.Lock()
	delete(b.retries, url)
	b.mu.Unlock()
}

// SetPolicy replaces the policy. Existing counters are kept.
func (b *Backoff) SetPolicy(policy RetryPolicy) {
	b.mu.Lock()
	b.policy = policy.withDefaults()
	b.mu.Unlock()
}

// Policy returns the active policy.
func (b *Backoff) Policy() RetryPolicy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.policy
}
