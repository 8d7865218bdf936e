package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns an identifier for a store session.
//
// Format: <unix-timestamp-hex>-<first uuid segment>
func NewID() (string, error) {
	// Get the current time in UTC...
	now := time.Now().UTC().Unix()

	// Generate a random part...
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate session uuid: %w", err)
	}
	r := strings.SplitN(u.String(), "-", 2)[0]

	return fmt.Sprintf("%x-%s", now, r), nil
}
