package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the provider is considered down and requests fail fast.
	CircuitOpen
	// CircuitHalfOpen means one probe request is in flight.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long the circuit stays open before a probe is allowed.
	ResetAfter time.Duration
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultCircuitBreakerConfig returns the defaults used when nothing is configured.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker trips open after N consecutive failures and lets a single
// probe through once the reset period has passed.
type CircuitBreaker struct {
	mu               sync.RWMutex
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
	now              func() time.Time
}

// NewCircuitBreaker creates a circuit breaker. Non-positive values fall back
// to the defaults.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.ResetAfter <= 0 {
		config.ResetAfter = defaults.ResetAfter
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
		now:        config.Now,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, nil
	case CircuitOpen:
		since := cb.now().Sub(cb.lastFailure)
		if since > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return true, nil
		}
		return false, fmt.Errorf("circuit breaker open: model provider appears to be down (failed %d times, last failure %v ago)",
			cb.consecutiveFails, since.Round(time.Second))
	case CircuitHalfOpen:
		return false, fmt.Errorf("circuit breaker half-open: testing if model provider has recovered")
	default:
		return false, fmt.Errorf("circuit breaker in unknown state: %v", cb.state)
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure and trips the circuit at the threshold.
// A failed probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current count of consecutive failures.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// ============================================================================
// Breaker Client
// ============================================================================

// BreakerClient guards an LLMClient with a circuit breaker. Only retryable
// failures (outages, timeouts, rate limits) count against the circuit; a
// blocked or unparseable answer says nothing about provider health.
type BreakerClient struct {
	next    LLMClient
	breaker *CircuitBreaker
	logger  *zap.Logger
}

var _ LLMClient = (*BreakerClient)(nil)

// NewBreakerClient wraps next.
func NewBreakerClient(next LLMClient, breaker *CircuitBreaker, logger *zap.Logger) *BreakerClient {
	return &BreakerClient{
		next:    next,
		breaker: breaker,
		logger:  logger.Named("llm.breaker"),
	}
}

func (c *BreakerClient) Provider() string { return c.next.Provider() }

func (c *BreakerClient) Model() string { return c.next.Model() }

// Breaker exposes the underlying circuit breaker, for health reporting.
func (c *BreakerClient) Breaker() *CircuitBreaker { return c.breaker }

func (c *BreakerClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if allowed, err := c.breaker.Allow(); !allowed {
		return nil, withSource(NewError(ErrorTypeUnavailable, "provider unavailable", false, err),
			c.next.Provider(), c.next.Model())
	}

	resp, err := c.next.Generate(ctx, req)
	if err == nil {
		c.breaker.RecordSuccess()
		return resp, nil
	}

	if IsRetryable(err) {
		c.breaker.RecordFailure()
		if c.breaker.State() == CircuitOpen {
			c.logger.Warn("Circuit breaker open",
				zap.String("provider", c.next.Provider()),
				zap.Int("consecutive_failures", c.breaker.ConsecutiveFailures()),
				zap.Error(err))
		}
	} else if c.breaker.State() == CircuitHalfOpen {
		// The provider answered, so the probe succeeded.
		c.breaker.RecordSuccess()
	}
	return nil, err
}
