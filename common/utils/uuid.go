package utils

import (
	"github.com/gofrs/uuid/v5"
)

// UnsafeUUIDGenerator skips the random-pool locking of the default
// generator, probe ids don't need cryptographic uniqueness.
var UnsafeUUIDGenerator = uuid.NewGen()

func NewUUIDV4() uuid.UUID {
	u, _ := UnsafeUUIDGenerator.NewV4()
	return u
}
