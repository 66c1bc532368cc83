package tool

import (
	"github.com/google/uuid"
)

// NewEntryID generates a queue entry id. Collision resistance only needs to
// hold for one session; uuid v4 is far beyond that.
func NewEntryID() string {
	return uuid.NewString()
}
