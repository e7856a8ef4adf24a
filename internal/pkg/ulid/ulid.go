// Package ulid provides ULID generation for storage object keys.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// New generates a new ULID.
func New() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// ObjectKey returns a sortable object key under prefix, keeping ext.
// ObjectKey("avatars", ".png") gives "avatars/01j9...png".
func ObjectKey(prefix, ext string) string {
	key := strings.ToLower(New()) + strings.ToLower(ext)
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + key
}
