package idutil

import "github.com/google/uuid"

// Generate time-ordered random id (UUIDv7) with extra prefix.
//
// Thread safe. Can be used in distributed environment.
func Id(prefix string) string {
	return prefix + New()
}

// Generate time-ordered random id (UUIDv7).
//
// Falls back to UUIDv4 if the v7 generator fails to read randomness.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
