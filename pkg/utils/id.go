package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a random identifier namespaced by prefix, e.g. "rcpt_<uuid>".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
