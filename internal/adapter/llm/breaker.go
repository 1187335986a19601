package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerOptions configures a BreakerClient.
type BreakerOptions struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
}

// BreakerClient wraps a Client with circuit breaker protection. Once the
// endpoint fails repeatedly, calls fail fast until the probe succeeds.
type BreakerClient struct {
	name    string
	inner   Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps inner. name identifies the endpoint in logs.
func NewBreakerClient(name string, inner Client, opts BreakerOptions, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "llm:" + name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the endpoint.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerClient{name: name, inner: inner, breaker: cb}
}

// StreamChat implements Client. Errors returned by callback are the caller's
// and never count against the endpoint.
func (b *BreakerClient) StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) error {
	var callbackErr error
	_, err := b.breaker.Execute(func() (any, error) {
		err := b.inner.StreamChat(ctx, req, func(chunk StreamChunk) error {
			if err := callback(chunk); err != nil {
				callbackErr = err
				return err
			}
			return nil
		})
		if callbackErr != nil {
			return nil, nil
		}
		return nil, err
	})
	if callbackErr != nil {
		return callbackErr
	}
	return b.wrap(err)
}

// Complete implements Client.
func (b *BreakerClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	resp, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return resp.(*ChatResponse), nil
}

// ListModels implements Client. Model listing bypasses the breaker so status
// probes keep working while the circuit is open.
func (b *BreakerClient) ListModels(ctx context.Context) ([]Model, error) {
	return b.inner.ListModels(ctx)
}

// State returns the breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerClient) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("endpoint %q circuit open: %w", b.name, err)
	}
	return err
}
