package services

import (
	"stepout/internal/domain"

	"github.com/google/uuid"
)

// newID returns a fresh canonical identifier. Tests may swap it for a deterministic source.
var newID = func() string {
	return domain.CanonicalID(uuid.NewString())
}
