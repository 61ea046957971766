// Package serializer converts values between their native Go form and the wire
// representation used by the storage service. It has no dependencies on the rest of
// the module and is used by both the request encoders and the response decoders.
//
// The package focuses on:
//   - Encoding native values into typed attributes (S, N, B, BOOL, TS) and back
//   - The packed binary array format used to store homogeneous numeric lists
//   - The "<seconds>:<nanoseconds>" timestamp format
//   - Detecting and decoding response bodies (JSON or XML)
//
// Key Components:
//
//   - TypedAttribute: The tagged wire representation of a single table-cell value.
//     It marshals to and from the one-key JSON object the service expects,
//     e.g. {"N": "42"} or {"B": "<base64>"}.
//
//   - EncodeAttribute / DecodeAttribute: Convert a native value into a TypedAttribute
//     and back. Integers and floats keep their numeric category across a round trip,
//     packed arrays come back as []int64 or []float64.
//
//   - EncodePackedArray / DecodePackedArray: The private little-endian array format:
//
//     +--------------------+-------------------+------------------+-----------------+
//     | magic (uint32)     | version (uint32)  | payload (uint32) | operand (uint32)|
//     +--------------------+-------------------+------------------+-----------------+
//     | values: payload/8 x int64 (operand 259) or float64 (operand 261)            |
//     +-----------------------------------------------------------------------------+
//
//   - DetectFormat / DecodeBody: Sniff the first byte of a body and decode it as JSON
//     (via sonic) or XML.
//
// Error Handling:
//
//	Unsupported values produce an *EncodingError, malformed packed arrays and timestamps
//	produce a *DecodingError.
//
// Thread Safety:
//
//	All functions are stateless and safe for concurrent use.
//
// Usage:
//
//	attr, err := serializer.EncodeAttribute([]float64{1.5, 2.5})
//	// attr.Type == serializer.AttributeBinary
//	value, err := serializer.DecodeAttribute(attr)
//	// value.([]float64) == []float64{1.5, 2.5}
package serializer
