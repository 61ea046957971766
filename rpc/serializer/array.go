package serializer

import (
	"bytes"
	"encoding/binary"
	"math"
)

// OperandType identifies the element type of a packed array
type OperandType uint32

const (
	OperandTypeLong   OperandType = 259 // int64 elements
	OperandTypeDouble OperandType = 261 // float64 elements
)

const (
	packedArrayMagic   uint32 = 11223344
	packedArrayVersion uint32 = 1

	staticHeaderLen = 8 // magic + version
	subHeaderLen    = 8 // payload length + operand type
	elementSize     = 8
)

// packedArrayHeader is the magic+version prefix every packed array starts with
var packedArrayHeader = func() []byte {
	header := make([]byte, staticHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], packedArrayMagic)
	binary.LittleEndian.PutUint32(header[4:8], packedArrayVersion)
	return header
}()

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodePackedArray encodes a homogeneous numeric list into the packed binary format.
// Accepted inputs are []int64, []int, []int32, []float64, []float32 and []any. For []any
// the element type is taken from the first element (float => double, otherwise long).
func EncodePackedArray(list any) ([]byte, error) {
	switch v := list.(type) {
	case []int64:
		return encodeLongs(v), nil
	case []int:
		longs := make([]int64, len(v))
		for i, x := range v {
			longs[i] = int64(x)
		}
		return encodeLongs(longs), nil
	case []int32:
		longs := make([]int64, len(v))
		for i, x := range v {
			longs[i] = int64(x)
		}
		return encodeLongs(longs), nil
	case []float64:
		return encodeDoubles(v), nil
	case []float32:
		doubles := make([]float64, len(v))
		for i, x := range v {
			doubles[i] = float64(x)
		}
		return encodeDoubles(doubles), nil
	case []any:
		return encodeAnyList(v)
	default:
		return nil, &EncodingError{Value: list, Reason: "not a numeric list"}
	}
}

// encodeAnyList infers the element type from the first element
func encodeAnyList(list []any) ([]byte, error) {
	if len(list) > 0 && isFloat(list[0]) {
		doubles := make([]float64, len(list))
		for i, x := range list {
			f, ok := toFloat(x)
			if !ok {
				return nil, &EncodingError{Value: x, Reason: "list elements must all be numeric"}
			}
			doubles[i] = f
		}
		return encodeDoubles(doubles), nil
	}

	longs := make([]int64, len(list))
	for i, x := range list {
		n, err := toInt(x)
		if err != nil {
			return nil, err
		}
		longs[i] = n
	}
	return encodeLongs(longs), nil
}

func encodeLongs(values []int64) []byte {
	result, pos := newPackedArray(len(values), OperandTypeLong)
	for _, v := range values {
		binary.LittleEndian.PutUint64(result[pos:pos+elementSize], uint64(v))
		pos += elementSize
	}
	return result
}

func encodeDoubles(values []float64) []byte {
	result, pos := newPackedArray(len(values), OperandTypeDouble)
	for _, v := range values {
		binary.LittleEndian.PutUint64(result[pos:pos+elementSize], math.Float64bits(v))
		pos += elementSize
	}
	return result
}

// newPackedArray allocates the full buffer, writes both headers and returns the
// position of the first value
func newPackedArray(numItems int, operand OperandType) ([]byte, int) {
	payloadLen := numItems * elementSize
	result := make([]byte, staticHeaderLen+subHeaderLen+payloadLen)

	copy(result[0:staticHeaderLen], packedArrayHeader)
	pos := staticHeaderLen

	binary.LittleEndian.PutUint32(result[pos:pos+4], uint32(payloadLen))
	pos += 4
	binary.LittleEndian.PutUint32(result[pos:pos+4], uint32(operand))
	pos += 4

	return result, pos
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// IsPackedArray reports whether data starts with the packed array magic and version
func IsPackedArray(data []byte) bool {
	return len(data) > staticHeaderLen && bytes.HasPrefix(data, packedArrayHeader)
}

// DecodePackedArray decodes a packed array into []int64 (long operand) or []float64
// (double operand). It returns a *DecodingError if the header does not match.
func DecodePackedArray(data []byte) (any, error) {
	if !IsPackedArray(data) {
		return nil, &DecodingError{What: "packed array", Reason: "missing magic/version header"}
	}
	pos := staticHeaderLen

	if len(data) < pos+subHeaderLen {
		return nil, &DecodingError{What: "packed array", Reason: "data too short for sub-header"}
	}

	payloadLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	operand := OperandType(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if payloadLen%elementSize != 0 {
		return nil, &DecodingError{What: "packed array", Reason: "payload length is not a multiple of the element size"}
	}
	numItems := payloadLen / elementSize
	if len(data) < pos+numItems*elementSize {
		return nil, &DecodingError{What: "packed array", Reason: "data too short for payload"}
	}

	switch operand {
	case OperandTypeLong:
		values := make([]int64, numItems)
		for i := range values {
			values[i] = int64(binary.LittleEndian.Uint64(data[pos : pos+elementSize]))
			pos += elementSize
		}
		return values, nil
	case OperandTypeDouble:
		values := make([]float64, numItems)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[pos : pos+elementSize]))
			pos += elementSize
		}
		return values, nil
	default:
		return nil, &DecodingError{What: "packed array", Reason: "unknown operand type"}
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		n, err := toInt(v)
		return float64(n), err == nil
	}
}

// toInt returns an *EncodingError for non-integers and for unsigned values
// beyond the int64 range
func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt(x)
	default:
		return 0, &EncodingError{Value: v, Reason: "list elements must all be integers when the first one is"}
	}
}

func uintToInt(x uint64) (int64, error) {
	if x > math.MaxInt64 {
		return 0, &EncodingError{Value: x, Reason: "integer exceeds the int64 range of a packed array"}
	}
	return int64(x), nil
}
