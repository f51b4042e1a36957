package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, pin string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash PIN: %v", err)
	}
	return string(h)
}

func TestParseStaffAccount(t *testing.T) {
	tests := []struct {
		in      string
		want    StaffAccount
		wantErr bool
	}{
		{in: "mai:cashier:$2a$04$abc", want: StaffAccount{ID: "mai", Role: RoleCashier, PINHash: "$2a$04$abc"}},
		{in: " chef:KITCHEN:h ", want: StaffAccount{ID: "chef", Role: RoleKitchen, PINHash: "h"}},
		{in: "boss:manager:a:b", want: StaffAccount{ID: "boss", Role: RoleManager, PINHash: "a:b"}},
		{in: "x:waiter:h", wantErr: true},
		{in: "x:cashier", wantErr: true},
		{in: ":cashier:h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStaffAccount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStaffAccount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseStaffAccount(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleAllows(t *testing.T) {
	if !RoleManager.Allows(RoleKitchen) {
		t.Error("Managers should act as kitchen staff")
	}
	if RoleKitchen.Allows(RoleCashier) {
		t.Error("Kitchen staff should not act as cashiers")
	}
	if !RoleCashier.Allows(RoleKitchen, RoleCashier) {
		t.Error("Cashiers should match when listed")
	}
}

func TestPINAuthenticator(t *testing.T) {
	a := NewPINAuthenticator([]StaffAccount{
		{ID: "mai", Role: RoleCashier, PINHash: hash(t, "4321")},
	})
	ctx := context.Background()

	acc, err := a.Authenticate(ctx, "mai", "4321")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if acc.Role != RoleCashier {
		t.Errorf("Role = %s, want cashier", acc.Role)
	}

	if _, err := a.Authenticate(ctx, "mai", "0000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected invalid credentials for wrong PIN, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody", "4321"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected invalid credentials for unknown staff, got %v", err)
	}

	for _, pin := range []string{"123", "123456789", "12a4"} {
		if err := a.ValidateCredential(pin); !errors.Is(err, ErrWeakPIN) {
			t.Errorf("ValidateCredential(%q) = %v, want ErrWeakPIN", pin, err)
		}
	}
	if err := a.ValidateCredential("0042"); err != nil {
		t.Errorf("ValidateCredential(0042) = %v", err)
	}
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(&StaffAccount{ID: "chef", Role: RoleKitchen})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.StaffID != "chef" || claims.Role != RoleKitchen {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected invalid token with a different secret, got %v", err)
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	old, _ := expired.Generate(&StaffAccount{ID: "chef", Role: RoleKitchen})
	if _, err := m.Validate(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected expired token to be rejected, got %v", err)
	}
}
