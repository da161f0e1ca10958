package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a collision-resistant record id, optionally
// prefixed for readability in logs and URLs.
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
