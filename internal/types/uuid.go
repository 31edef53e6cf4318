package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex subs_01JB6W6F7NRG6XQ8W6T3D3ZK3E
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_SUBSCRIPTION = "subs"
	UUID_PREFIX_PLAN         = "plan"
	UUID_PREFIX_USER         = "user"
	UUID_PREFIX_REFUND       = "rfnd"
)
