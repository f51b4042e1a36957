package storage

import (
	"strings"

	"github.com/google/uuid"
)

// NewOrderCode generates a human-readable order code such as "ORD-7F3A92C1".
// Backends enforce uniqueness and call it again on collision.
func NewOrderCode() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}
