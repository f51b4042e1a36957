package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/apperr"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, caller identity, duration, and any error codes/messages.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			// Interceptors inside this one enrich their own context, so read the
			// identity from the request headers.
			participant := req.Header().Get(ParticipantHeader)

			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"reason", connectErr.Meta().Get(apperr.CodeHeader),
						"error", connectErr.Message(),
						"participant", participant,
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"participant", participant,
						"duration_ms", duration,
					)
				}
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"participant", participant,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}
