package client

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/ijmichel/httpexperiments/config"
)

// NewIdentifier returns a fresh request identifier of the given type, or ""
// for IdentifierNone.
func NewIdentifier(t config.IdentifierType) string {
	switch t {
	case config.IdentifierUUID:
		return uuid.New().String()
	case config.IdentifierULID:
		return ulid.Make().String()
	}
	return ""
}
