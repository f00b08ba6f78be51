package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var counter uint64

// New returns a prefixed identifier built from the current time, a
// process-wide counter, and random bytes. The counter keeps IDs unique
// even when two are minted within the same nanosecond.
func New(prefix string) string {
	seq := atomic.AddUint64(&counter, 1)
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq)
	}
	return fmt.Sprintf("%s-%d-%d-%s", prefix, time.Now().UnixNano(), seq, hex.EncodeToString(buf))
}
