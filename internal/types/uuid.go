package types

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity ID prefixes. Every persisted row carries a prefixed ULID so IDs are
// sortable by creation time and self-describing in logs.
const (
	UUID_PREFIX_SUBSCRIPTION = "sub"
	UUID_PREFIX_PAYMENT      = "txn"
	UUID_PREFIX_LOCAL_ADMIN  = "ladm"
	UUID_PREFIX_ASSIGNMENT   = "asgn"
	UUID_PREFIX_REQUEST      = "req"
)

// GenerateUUID returns a new ULID string
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String())
}

// GenerateUUIDWithPrefix returns a new ULID string prefixed with the entity type
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
