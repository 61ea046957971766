package serializer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncodeTimestamp encodes t as "<seconds>:<nanoseconds>" since the unix epoch in UTC
func EncodeTimestamp(t time.Time) string {
	t = t.UTC()
	return strconv.FormatInt(t.Unix(), 10) + ":" + strconv.Itoa(t.Nanosecond())
}

// DecodeTimestamp parses the "<seconds>:<nanoseconds>" format and returns a UTC time
func DecodeTimestamp(encoded string) (time.Time, error) {
	secondsStr, nanosStr, found := strings.Cut(encoded, ":")
	if !found {
		return time.Time{}, &DecodingError{What: "timestamp", Reason: fmt.Sprintf("missing ':' in %q", encoded)}
	}

	seconds, err := strconv.ParseInt(secondsStr, 10, 64)
	if err != nil {
		return time.Time{}, &DecodingError{What: "timestamp", Reason: "invalid seconds", Err: err}
	}

	nanos, err := strconv.ParseInt(nanosStr, 10, 64)
	if err != nil {
		return time.Time{}, &DecodingError{What: "timestamp", Reason: "invalid nanoseconds", Err: err}
	}

	return time.Unix(seconds, nanos).UTC(), nil
}
