package middleware

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/model"
)

// ModelHandler produces the final response for a request.
type ModelHandler func(ctx context.Context, req *model.Request) (*model.Response, error)

// ModelMiddleware wraps a model call.
type ModelMiddleware func(ctx context.Context, req *model.Request, next ModelHandler) (*model.Response, error)

type wrappedModel struct {
	inner   model.Model
	handler ModelHandler
}

// WrapModel returns m with mws applied. The wrapped model collects the inner
// stream so middleware only sees final responses.
func WrapModel(m model.Model, mws ...ModelMiddleware) model.Model {
	if len(mws) == 0 {
		return m
	}
	final := func(ctx context.Context, req *model.Request) (*model.Response, error) {
		return model.Collect(ctx, m, *req)
	}
	h := ModelHandler(final)
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ctx context.Context, req *model.Request) (*model.Response, error) { return mw(ctx, req, next) }
	}
	return &wrappedModel{inner: m, handler: h}
}

func (w *wrappedModel) Info() model.Info { return w.inner.Info() }

func (w *wrappedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := w.handler(ctx, &req)
		if err != nil {
			errCh <- err
			return
		}
		if resp != nil {
			r := *resp
			r.Partial = false
			out <- r
		}
	}()
	return out, errCh
}

// RateLimit waits for a token of a shared limiter before every call. limit
// is in calls per second.
func RateLimit(limit float64, burst int) ModelMiddleware {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	return func(ctx context.Context, req *model.Request, next ModelHandler) (*model.Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

// LogCalls logs the duration and token usage of every model call.
func LogCalls(logger logging.Logger) ModelMiddleware {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(ctx context.Context, req *model.Request, next ModelHandler) (*model.Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logger.Error("model.call.error", "error", err.Error(), "duration_ms", time.Since(start).Milliseconds())
			return nil, err
		}
		args := []any{"duration_ms", time.Since(start).Milliseconds(), "finish_reason", resp.FinishReason}
		if resp.Usage != nil {
			args = append(args, "total_tokens", resp.Usage.TotalTokens)
		}
		logger.Info("model.call.done", args...)
		return resp, nil
	}
}
