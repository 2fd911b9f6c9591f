package signals

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NameGenerator produces names for handlers connected without one.
type NameGenerator func() string

// UUIDNames generates random version 4 UUIDs.
func UUIDNames() string {
	return uuid.NewString()
}

// ULIDNames generates monotonic ULIDs, so auto-named handlers sort by
// connection time.
func ULIDNames() string {
	return ulid.Make().String()
}
