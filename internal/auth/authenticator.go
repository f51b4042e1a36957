package auth

import (
	"context"
	"fmt"
	"strings"
)

// Role is a staff terminal's permission level.
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleKitchen, RoleCashier, RoleManager:
		return r, nil
	default:
		return "", fmt.Errorf("unknown staff role %q", s)
	}
}

// Allows reports whether r may act as any of the wanted roles. Managers may act as
// anyone.
func (r Role) Allows(wanted ...Role) bool {
	if r == RoleManager {
		return true
	}
	for _, w := range wanted {
		if r == w {
			return true
		}
	}
	return false
}

// StaffAccount is one staff member allowed to log into a terminal.
type StaffAccount struct {
	ID      string
	Role    Role
	PINHash string
}

// ParseStaffAccount parses "id:role:bcrypthash".
func ParseStaffAccount(s string) (StaffAccount, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return StaffAccount{}, fmt.Errorf("staff entry must look like id:role:hash")
	}
	role, err := ParseRole(parts[1])
	if err != nil {
		return StaffAccount{}, err
	}
	return StaffAccount{ID: parts[0], Role: role, PINHash: parts[2]}, nil
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (PIN, badge, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Authenticate verifies the staff member's credential and returns the account.
	Authenticate(ctx context.Context, staffID, credential string) (*StaffAccount, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
