// Package idgen generates sortable, monotonic identifiers for sessions,
// messages, and parts.
package idgen

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a new lexicographically sortable ULID string. Safe for
// concurrent use; IDs generated within the same millisecond still sort in
// call order because of the monotonic entropy source.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Timestamp returns the current time in milliseconds since epoch, the clock
// the store uses when stamping messages. Callers that need to compare
// against a handoff timestamp must read theirs from this function.
func Timestamp() int64 {
	return time.Now().UnixMilli()
}
