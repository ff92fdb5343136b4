package uuidx

import "github.com/google/uuid"

// New generates a new UUID using the version 7 format and returns it.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new UUID using the version 7 format and returns it as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a version 7 UUID string behind prefix and an underscore,
// e.g. "sess_0190f0c4-...". An empty prefix yields a plain UUID string.
func Prefixed(prefix string) string {
	if prefix == "" {
		return NewString()
	}
	return prefix + "_" + NewString()
}
