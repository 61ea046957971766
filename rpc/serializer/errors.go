package serializer

import (
	"errors"
	"fmt"
)

// EncodingError is returned when a value cannot be represented on the wire
type EncodingError struct {
	// Name is the attribute name (may be empty when encoding a single value)
	Name string
	// Value is the offending value
	Value any
	// Reason describes why the value was rejected
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("serializer: cannot encode attribute %q (%T): %s", e.Name, e.Value, e.Reason)
	}
	return fmt.Sprintf("serializer: cannot encode value of type %T: %s", e.Value, e.Reason)
}

// DecodingError is returned when a wire value is malformed
type DecodingError struct {
	// What names the format that failed to decode (e.g. "packed array")
	What string
	// Reason describes the failure
	Reason string
	// Err is the underlying error, if any
	Err error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serializer: cannot decode %s: %s: %v", e.What, e.Reason, e.Err)
	}
	return fmt.Sprintf("serializer: cannot decode %s: %s", e.What, e.Reason)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// IsEncodingError checks if err is (or wraps) an *EncodingError
func IsEncodingError(err error) bool {
	var e *EncodingError
	return errors.As(err, &e)
}

// IsDecodingError checks if err is (or wraps) a *DecodingError
func IsDecodingError(err error) bool {
	var e *DecodingError
	return errors.As(err, &e)
}
