package middleware

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/auth"
)

// ParticipantHeader carries the diner's device-stable participant ID.
const ParticipantHeader = "Tableside-Participant"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ParticipantKey is the context key for the diner's participant ID.
	ParticipantKey contextKey = "participant_id"
	// StaffIDKey is the context key for storing the authenticated staff ID.
	StaffIDKey contextKey = "staff_id"
	// RoleKey is the context key for storing the authenticated staff role.
	RoleKey contextKey = "role"
)

var errForbidden = errors.New("your role may not perform this action")

// GetParticipant extracts the participant ID from the context.
// Returns empty string if not found.
func GetParticipant(ctx context.Context) string {
	id, _ := ctx.Value(ParticipantKey).(string)
	return id
}

// GetStaffID extracts the staff ID from the context.
// Returns empty string if not found.
func GetStaffID(ctx context.Context) string {
	id, _ := ctx.Value(StaffIDKey).(string)
	return id
}

// GetRole extracts the staff role from the context.
// Returns empty string if not found.
func GetRole(ctx context.Context) auth.Role {
	role, _ := ctx.Value(RoleKey).(auth.Role)
	return role
}

// WithStaff returns a context carrying the staff identity, as the auth interceptors do.
func WithStaff(ctx context.Context, staffID string, role auth.Role) context.Context {
	ctx = context.WithValue(ctx, StaffIDKey, staffID)
	return context.WithValue(ctx, RoleKey, role)
}

// Participant returns an interceptor that copies the participant header into the
// context. Handlers that need it reject requests without one.
func Participant() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := strings.TrimSpace(req.Header().Get(ParticipantHeader)); id != "" {
				ctx = context.WithValue(ctx, ParticipantKey, id)
			}
			return next(ctx, req)
		}
	}
}

// OptionalStaffAuth returns a middleware that validates JWT tokens if present, but
// allows requests without authentication. Staff-only procedures then check the role
// with RequireRole.
func OptionalStaffAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return next(ctx, req)
			}

			// Parse Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			// A presented token must be valid.
			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithStaff(ctx, claims.StaffID, claims.Role), req)
		}
	}
}

// RequireRole checks that the context carries a staff identity allowed to act as one
// of the roles.
func RequireRole(ctx context.Context, roles ...auth.Role) error {
	role := GetRole(ctx)
	if role == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if !role.Allows(roles...) {
		return connect.NewError(connect.CodePermissionDenied, errForbidden)
	}
	return nil
}
