package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. ULIDs sort by creation time, so archived
// objects under one prefix list oldest first.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
