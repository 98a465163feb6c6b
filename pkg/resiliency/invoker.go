// Package resiliency bounds how often and how aggressively George invokes
// external subprocesses, using a retry/circuit-breaker shape adapted from
// an HTTP client wrapper to exec.CommandContext. No other package in this
// module calls it.
package resiliency

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Invoker runs external commands with a token-bucket rate limit, bounded
// retries with exponential backoff and jitter, and a circuit breaker that
// opens once a command starts failing consistently — so a wedged
// playbook script or dashboard-refresh hook can't be retried into a
// resource storm.
type Invoker struct {
	limiter    *rate.Limiter
	maxRetries int
	breaker    *CircuitBreaker
}

// NewInvoker builds an Invoker allowing up to ratePerSec invocations per
// second (burst of 1), three retries, and a breaker that opens after five
// consecutive failures for ten seconds.
func NewInvoker(name string, ratePerSec float64) *Invoker {
	return &Invoker{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
		maxRetries: 3,
		breaker:    NewCircuitBreaker(name, 5, 10*time.Second),
	}
}

// Result captures a completed invocation's output for callers that need
// to inspect stdout (e.g. the self-healing playbook runner parsing a
// tool's JSON report).
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run executes name with args, waiting on the rate limiter first, then
// retrying on non-zero exit with exponential backoff and jitter. It
// returns the last attempt's Result even on eventual failure, so callers
// can inspect stderr for diagnostics.
func (inv *Invoker) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if !inv.breaker.Allow() {
		return Result{}, fmt.Errorf("resiliency: circuit breaker open for %s", name)
	}

	if err := inv.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("resiliency: rate limiter wait: %w", err)
	}

	var last Result
	var lastErr error
	for attempt := 0; attempt <= inv.maxRetries; attempt++ {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		last = Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: cmd.ProcessState.ExitCode()}

		if runErr == nil {
			inv.breaker.Success()
			return last, nil
		}
		lastErr = runErr

		if attempt == inv.maxRetries {
			break
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			inv.breaker.Failure()
			return last, err
		}
	}

	inv.breaker.Failure()
	return last, fmt.Errorf("resiliency: %s failed after %d attempts: %w", name, inv.maxRetries+1, lastErr)
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
	jitter := time.Duration(0)
	if n, err := rand.Int(rand.Reader, big.NewInt(50)); err == nil {
		jitter = time.Duration(n.Int64()) * time.Millisecond
	}
	timer := time.NewTimer(backoff + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CircuitBreaker is a simple CLOSED/OPEN/HALF_OPEN state machine for
// detecting a subprocess that is failing consistently.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	failureCount int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        string
}

// NewCircuitBreaker builds a breaker that opens after threshold
// consecutive failures and attempts a half-open probe after timeout.
func NewCircuitBreaker(name string, threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: timeout,
		state:        "CLOSED",
	}
}

// Allow reports whether a new invocation may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == "OPEN" {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = "HALF_OPEN"
			return true
		}
		return false
	}
	return true
}

// Success resets the failure count and closes the breaker.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = "CLOSED"
	cb.failureCount = 0
}

// Failure records one failed invocation, opening the breaker once
// threshold consecutive failures have accumulated.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.threshold {
		cb.state = "OPEN"
	}
}
