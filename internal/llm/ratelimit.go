package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"github.com/RahulDas-dev/invoice-parser/internal/logger"
)

const (
	// Worker pool size when the caller does not configure one
	defaultMaxWorkers = 10

	// Rough token cost of one page image plus its transcription, used to pace calls
	estimatedTokensPerPage = 2000

	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// Limiter paces model calls with a token bucket and retries rate-limited calls. One Limiter is
// shared by every call a Client makes.
type Limiter struct {
	bucket     *rate.Limiter
	maxRetries int
	log        logger.Logger
}

// NewLimiter allows tokensPerSecond sustained with bursts up to burst tokens.
func NewLimiter(tokensPerSecond, burst, maxRetries int, log logger.Logger) *Limiter {
	return &Limiter{
		bucket:     rate.NewLimiter(rate.Limit(tokensPerSecond), burst),
		maxRetries: maxRetries,
		log:        log,
	}
}

// RateLimitedCall waits for limiter approval, then calls fn, retrying 429 errors with
// exponential backoff.
func RateLimitedCall[T any](ctx context.Context, l *Limiter, estimatedTokens int, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if estimatedTokens > l.bucket.Burst() {
		estimatedTokens = l.bucket.Burst()
	}
	if err := l.bucket.WaitN(ctx, estimatedTokens); err != nil {
		return zero, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseRetryDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			l.log.Info("Retry attempt %d/%d after %v delay", attempt, l.maxRetries, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				l.log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !isRateLimitError(err) {
			return zero, err
		}
		l.log.Warn("Rate limit error (429) on attempt %d/%d: %v", attempt+1, l.maxRetries+1, err)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", l.maxRetries, lastErr)
}

// isRateLimitError checks if an error is a 429 from OpenAI
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	msg := err.Error()
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WorkerPool manages a pool of workers for parallel processing
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified maximum workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Acquire acquires a worker slot, blocking if all workers are busy
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a worker slot, allowing another worker to proceed
func (wp *WorkerPool) Release() {
	<-wp.semaphore
}

// ParallelProcess runs processFn for every item with at most maxWorkers in flight. Results keep
// the input order. The batch fails as a whole on the first error; no partial results are returned.
func ParallelProcess[T any, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	log logger.Logger,
	processFn func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp := NewWorkerPool(maxWorkers)
	results := make([]R, len(items))

	type result struct {
		index int
		value R
		err   error
	}
	resultChan := make(chan result, len(items))

	launched := 0
	var firstError error
	for i, item := range items {
		if err := wp.Acquire(ctx); err != nil {
			firstError = err
			break
		}
		launched++

		go func(idx int, itm T) {
			defer wp.Release()

			select {
			case <-ctx.Done():
				var zero R
				resultChan <- result{index: idx, value: zero, err: ctx.Err()}
				return
			default:
			}

			val, err := processFn(ctx, idx, itm)
			resultChan <- result{index: idx, value: val, err: err}
		}(i, item)
	}

	for range launched {
		res := <-resultChan
		if res.err != nil {
			if firstError == nil || errors.Is(firstError, context.Canceled) && !errors.Is(res.err, context.Canceled) {
				firstError = res.err
			}
			cancel()
		}
		results[res.index] = res.value
	}

	if firstError != nil {
		log.Error("Parallel batch of %d items failed: %v", len(items), firstError)
		return nil, firstError
	}
	return results, nil
}
