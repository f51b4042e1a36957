package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid staff id or PIN")
	ErrWeakPIN            = errors.New("PIN must be 4 to 8 digits")
)

// PINAuthenticator implements PIN-based staff authentication using bcrypt.
// Accounts come from configuration; there is no self-registration.
type PINAuthenticator struct {
	accounts map[string]StaffAccount
}

// NewPINAuthenticator creates an authenticator over the given accounts.
func NewPINAuthenticator(accounts []StaffAccount) *PINAuthenticator {
	a := &PINAuthenticator{accounts: make(map[string]StaffAccount, len(accounts))}
	for _, acc := range accounts {
		a.accounts[acc.ID] = acc
	}
	return a
}

// ValidateCredential checks the PIN format.
func (a *PINAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 4 || len(credential) > 8 {
		return ErrWeakPIN
	}
	for _, c := range credential {
		if c < '0' || c > '9' {
			return ErrWeakPIN
		}
	}
	return nil
}

// Authenticate verifies the staff ID and PIN, returning the account if valid.
func (a *PINAuthenticator) Authenticate(ctx context.Context, staffID, credential string) (*StaffAccount, error) {
	acc, ok := a.accounts[staffID]
	if !ok {
		return nil, ErrInvalidCredentials
	}

	// Compare PIN hash
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PINHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &acc, nil
}

// HashPIN hashes a PIN for use in STAFF_PINS.
func HashPIN(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hashed), nil
}
