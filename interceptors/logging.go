package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
)

// LoggingInterceptor logs request processing. Start and completion are
// logged at info level when the client runs in debug mode, so the default
// slog handler shows them; failures are always logged with their
// classified kind.
type LoggingInterceptor struct {
	logger *slog.Logger
	debug  bool
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger}
}

// Order implements Interceptor
func (i *LoggingInterceptor) Order() int {
	return OrderLogger
}

// Init implements Interceptor
func (i *LoggingInterceptor) Init(cfg config.Config) error {
	i.debug = cfg.Debug
	return nil
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	start := time.Now()

	if i.debug {
		i.logger.Info("sending request",
			"requestId", req.ID,
			"route", req.Route(),
			"template", req.Metadata.Route(),
		)
	}

	resp, err := next.Handle(ctx, req)
	duration := time.Since(start)

	if err != nil {
		kind := exceptions.KindIO
		if exc := exceptions.Classify(req, err); exc != nil {
			kind = exc.Kind
		}
		i.logger.Warn("request failed",
			"requestId", req.ID,
			"route", req.Route(),
			"kind", kind,
			"attempts", req.Attempt+1,
			"duration", duration,
			"error", err,
		)
		return nil, err
	}

	if i.debug {
		i.logger.Info("request completed",
			"requestId", req.ID,
			"route", req.Route(),
			"status", resp.StatusCode,
			"duration", duration,
		)
	}
	return resp, nil
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}
