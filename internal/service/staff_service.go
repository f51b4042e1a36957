package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/pkg/api"
)

// StaffService implements the StaffService RPC interface.
type StaffService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

var _ api.StaffServiceHandler = (*StaffService)(nil)

// NewStaffService creates a new staff login service.
func NewStaffService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *StaffService {
	return &StaffService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Login exchanges a staff ID and PIN for a role-bearing token.
func (s *StaffService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "staff_id", req.Msg.StaffID)

	// Validate input
	if req.Msg.StaffID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}
	if err := s.authenticator.ValidateCredential(req.Msg.PIN); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// Authenticate
	acc, err := s.authenticator.Authenticate(ctx, req.Msg.StaffID, req.Msg.PIN)
	if err != nil {
		s.logger.Warn("Login failed", "staff_id", req.Msg.StaffID, "error", err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	// Generate JWT token
	token, err := s.jwtManager.Generate(acc)
	if err != nil {
		s.logger.Error("Failed to generate token", "staff_id", acc.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Staff logged in", "staff_id", acc.ID, "role", acc.Role)

	return connect.NewResponse(&api.LoginResponse{
		Token:     token,
		Role:      string(acc.Role),
		ExpiresAt: time.Now().Add(s.jwtManager.TokenDuration()).Unix(),
	}), nil
}
