// Package notify delivers best-effort push notifications to device tokens.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Message is the content of a push notification.
type Message struct {
	Title string
	Body  string
	Data  map[string]any
}

// Result counts per-token delivery outcomes.
type Result struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// Dispatcher sends a message to many devices. Implementations never fail the
// caller: every token ends up counted as a success or a failure.
type Dispatcher interface {
	SendToMany(ctx context.Context, tokens []string, msg Message) Result
}

// Background runs dispatches on tracked goroutines so callers never wait on
// the push gateway.
type Background struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logger     zerolog.Logger
	wg         sync.WaitGroup
}

// NewBackground wraps a dispatcher for fire-and-forget use.
func NewBackground(dispatcher Dispatcher, timeout time.Duration, logger zerolog.Logger) *Background {
	return &Background{
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

// Go dispatches msg without blocking. The send is bounded by the wrapper
// timeout rather than any caller context.
func (b *Background) Go(tokens []string, msg Message) {
	if len(tokens) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error().Interface("panic", r).Msg("notification dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		result := b.dispatcher.SendToMany(ctx, tokens, msg)
		b.logger.Info().
			Str("title", msg.Title).
			Int("success", result.SuccessCount).
			Int("failure", result.FailureCount).
			Msg("notification dispatched")
	}()
}

// Wait blocks until all in-flight dispatches finish or ctx is done.
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
