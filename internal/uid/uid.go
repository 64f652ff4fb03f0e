/*
Package uid – identifier generators used as attribute defaults.

UUIDs come from google/uuid; ULIDs are encoded with the Crockford base-32
alphabet so that they sort by creation time.
*/
package uid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Crockford base-32 alphabet (excludes I, L, O, U).
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	timeLen   = 10
	randomLen = 16
	ulidLen   = timeLen + randomLen
)

// UUID returns a random RFC-4122 v4 UUID string.
func UUID() string { return uuid.NewString() }

// ULID returns a 26-character ULID for the current time.
func ULID() string { return ULIDAt(time.Now()) }

// ULIDAt returns a ULID whose time component is t.
func ULIDAt(t time.Time) string {
	var b strings.Builder
	b.Grow(ulidLen)
	b.WriteString(encodeTime(t.UnixMilli()))
	b.WriteString(encodeRandom())
	return b.String()
}

func encodeTime(ms int64) string {
	out := make([]byte, timeLen)
	for i := timeLen - 1; i >= 0; i-- {
		out[i] = alphabet[ms%32]
		ms /= 32
	}
	return string(out)
}

func encodeRandom() string {
	buf := make([]byte, randomLen)
	if _, err := rand.Read(buf); err != nil {
		panic("uid: crypto/rand read failed: " + err.Error())
	}
	for i, v := range buf {
		buf[i] = alphabet[v&31]
	}
	return string(buf)
}

// Time extracts the creation time of a ULID string.
func Time(s string) (time.Time, error) {
	if len(s) != ulidLen {
		return time.Time{}, fmt.Errorf("uid: invalid ULID length %d", len(s))
	}
	var ms int64
	for _, c := range []byte(s[:timeLen]) {
		idx := strings.IndexByte(alphabet, c)
		if idx < 0 {
			return time.Time{}, fmt.Errorf("uid: invalid ULID char %q", c)
		}
		ms = ms*32 + int64(idx)
	}
	return time.UnixMilli(ms).UTC(), nil
}
