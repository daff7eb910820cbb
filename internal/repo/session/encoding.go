package session

import (
	"encoding/binary"
	"errors"
	"time"
)

// Redis values carry the record expiry as an 8 byte big-endian Unix
// millisecond prefix in front of the opaque payload, so Load can re-check
// expiry without interpreting the payload itself.

const expiryPrefixLen = 8

var errValueTooShort = errors.New("session value shorter than expiry prefix")

func encodeExpiry(expiry time.Time) []byte {
	buf := make([]byte, expiryPrefixLen)
	binary.BigEndian.PutUint64(buf, uint64(expiry.UnixMilli()))

	return buf
}

func decodeExpiry(value []byte) (time.Time, []byte, error) {
	if len(value) < expiryPrefixLen {
		return time.Time{}, nil, errValueTooShort
	}

	millis := int64(binary.BigEndian.Uint64(value[:expiryPrefixLen]))

	return time.UnixMilli(millis).UTC(), value[expiryPrefixLen:], nil
}
