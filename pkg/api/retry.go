package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Retrier wraps Client.Send with the cold-start retry policy:
//
//   - only aborted, unreachable and 404 failures are retried, up to
//     Config.MaxRetries times;
//   - before the first retry an aborted or 404 failure triggers a wake probe
//     to the server root, then the retrier waits Config.WakeDelay;
//   - retry n >= 2 waits n * Config.BackoffUnit.
//
// Any other failure, and the last failure once retries run out, is returned
// unchanged.
type Retrier struct {
	client *Client
	config Config
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewRetrier creates a Retrier using the client's configuration.
func NewRetrier(client *Client, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = client.logger
	}
	return &Retrier{
		client: client,
		config: client.Config(),
		logger: logger.With("component", "retrier"),
		sleep:  sleepContext,
	}
}

// Client returns the wrapped client.
func (r *Retrier) Client() *Client {
	return r.client
}

// Do sends req, retrying according to the policy above.
func (r *Retrier) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := r.client.Send(ctx, req)

	for retry := 1; err != nil && retry <= r.config.MaxRetries && IsRetryable(err); retry++ {
		delay := time.Duration(retry) * r.config.BackoffUnit
		if retry == 1 {
			if wantsWake(err) {
				r.logger.Info("backend may be asleep, sending wake probe", "path", req.Path, "error", err)
				r.Wake(ctx)
			}
			delay = r.config.WakeDelay
		}

		r.logger.Debug("retrying after delay", "path", req.Path, "retry", retry, "delay", delay)
		if serr := r.sleep(ctx, delay); serr != nil {
			return nil, serr
		}

		resp, err = r.client.Send(ctx, req)
	}

	return resp, err
}

// Wake sends an unauthenticated GET to the server root so a dormant backend
// instance starts booting. Callers inside the retry loop ignore the result.
func (r *Retrier) Wake(ctx context.Context) (*Response, error) {
	return r.client.Send(ctx, Request{Method: http.MethodGet, Path: "/"})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
