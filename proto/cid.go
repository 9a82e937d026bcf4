package proto

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

var (
	cidMu     sync.Mutex
	cidSource = ulid.Monotonic(rand.Reader, 0)
)

// newCid returns a new connection id, a lexically sortable ULID
// string. Every accepted connection gets one, carried through its log
// lines for correlation.
func newCid() string {
	cidMu.Lock()
	defer cidMu.Unlock()
	return ulid.MustNew(ulid.Now(), cidSource).String()
}
