package stateflow

import "github.com/google/uuid"

// NewID returns a random UUID string, used for generated instance and
// history entry ids.
func NewID() string {
	return uuid.NewString()
}
