package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// activity entries and user ids ordered without a separate timestamp index.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
