package serializer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"github.com/bytedance/sonic"
	"math"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Typed Attribute
// --------------------------------------------------------------------------

// TypedAttribute is the tagged wire representation of one table-cell value
type TypedAttribute struct {
	// Type is the wire tag
	Type AttributeType
	// Value holds the textual value for every type but AttributeBool
	Value string
	// Bool holds the value for AttributeBool
	Bool bool
}

// MarshalJSON renders the attribute as a one-key object, e.g. {"N":"42"}
func (a TypedAttribute) MarshalJSON() ([]byte, error) {
	if a.Type == AttributeUnknown {
		return nil, &EncodingError{Value: a, Reason: "attribute has no type"}
	}
	if a.Type == AttributeBool {
		return sonic.Marshal(map[string]bool{a.Type.String(): a.Bool})
	}
	return sonic.Marshal(map[string]string{a.Type.String(): a.Value})
}

// UnmarshalJSON parses a one-key object. Numbers and booleans sent as bare JSON
// literals are accepted for every tag.
func (a *TypedAttribute) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return &DecodingError{What: "typed attribute", Reason: "not an object", Err: err}
	}
	if len(raw) != 1 {
		return &DecodingError{What: "typed attribute", Reason: fmt.Sprintf("expected exactly one tag, got %d", len(raw))}
	}

	for tag, value := range raw {
		a.Type = ParseAttributeType(tag)
		if a.Type == AttributeUnknown {
			return &DecodingError{What: "typed attribute", Reason: fmt.Sprintf("unknown tag %q", tag)}
		}

		literal := strings.TrimSpace(string(value))
		switch {
		case strings.HasPrefix(literal, `"`):
			var s string
			if err := sonic.Unmarshal(value, &s); err != nil {
				return &DecodingError{What: "typed attribute", Reason: "invalid string", Err: err}
			}
			a.Value = s
		default:
			// bare number or boolean literal
			a.Value = literal
		}

		if a.Type == AttributeBool {
			b, err := strconv.ParseBool(a.Value)
			if err != nil {
				return &DecodingError{What: "typed attribute", Reason: "invalid boolean", Err: err}
			}
			a.Bool = b
			a.Value = ""
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodeAttribute converts a native value into its typed wire representation
func EncodeAttribute(value any) (TypedAttribute, error) {
	switch v := value.(type) {
	case TypedAttribute:
		return v, nil
	case string:
		return TypedAttribute{Type: AttributeString, Value: v}, nil
	case bool:
		return TypedAttribute{Type: AttributeBool, Bool: v}, nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		n, _ := toInt(v)
		return TypedAttribute{Type: AttributeNumber, Value: strconv.FormatInt(n, 10)}, nil
	case uint:
		return TypedAttribute{Type: AttributeNumber, Value: strconv.FormatUint(uint64(v), 10)}, nil
	case uint64:
		return TypedAttribute{Type: AttributeNumber, Value: strconv.FormatUint(v, 10)}, nil
	case float32:
		return encodeFloat(float64(v))
	case float64:
		return encodeFloat(v)
	case []byte:
		return TypedAttribute{Type: AttributeBinary, Value: base64.StdEncoding.EncodeToString(v)}, nil
	case []int64, []int, []int32, []float64, []float32, []any:
		packed, err := EncodePackedArray(v)
		if err != nil {
			return TypedAttribute{}, err
		}
		return TypedAttribute{Type: AttributeBinary, Value: base64.StdEncoding.EncodeToString(packed)}, nil
	case time.Time:
		return TypedAttribute{Type: AttributeTimestamp, Value: EncodeTimestamp(v)}, nil
	default:
		return TypedAttribute{}, &EncodingError{Value: value, Reason: "unsupported type"}
	}
}

// encodeFloat always renders a fractional part or exponent so the value decodes as a float
func encodeFloat(f float64) (TypedAttribute, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return TypedAttribute{}, &EncodingError{Value: f, Reason: "NaN and Inf are not representable"}
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return TypedAttribute{Type: AttributeNumber, Value: s}, nil
}

// EncodeItem encodes every attribute of an item
func EncodeItem(item map[string]any) (map[string]TypedAttribute, error) {
	result := make(map[string]TypedAttribute, len(item))
	for name, value := range item {
		attr, err := EncodeAttribute(value)
		if err != nil {
			if encErr, ok := err.(*EncodingError); ok {
				encErr.Name = name
			}
			return nil, err
		}
		result[name] = attr
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// DecodeAttribute converts a typed attribute back into a native value.
// Numbers decode to int64 when they have no fractional component, else float64.
// Binary values carrying the packed array header decode to []int64 / []float64,
// all other binary values to []byte.
func DecodeAttribute(attr TypedAttribute) (any, error) {
	switch attr.Type {
	case AttributeString:
		return attr.Value, nil
	case AttributeBool:
		return attr.Bool, nil
	case AttributeNumber:
		if n, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(attr.Value, 64)
		if err != nil {
			return nil, &DecodingError{What: "number", Reason: fmt.Sprintf("invalid number %q", attr.Value), Err: err}
		}
		return f, nil
	case AttributeBinary:
		data, err := base64.StdEncoding.DecodeString(attr.Value)
		if err != nil {
			return nil, &DecodingError{What: "binary", Reason: "invalid base64", Err: err}
		}
		if IsPackedArray(data) {
			if array, err := DecodePackedArray(data); err == nil {
				return array, nil
			}
		}
		return data, nil
	case AttributeTimestamp:
		return DecodeTimestamp(attr.Value)
	default:
		return nil, &DecodingError{What: "typed attribute", Reason: "unknown type"}
	}
}

// DecodeItem decodes every attribute of an item
func DecodeItem(item map[string]TypedAttribute) (map[string]any, error) {
	result := make(map[string]any, len(item))
	for name, attr := range item {
		value, err := DecodeAttribute(attr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		result[name] = value
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Attribute Type Definition
// --------------------------------------------------------------------------

// AttributeType is the wire tag of a typed attribute
type AttributeType uint8

const (
	AttributeUnknown   AttributeType = iota
	AttributeString                  // S
	AttributeNumber                  // N
	AttributeBinary                  // B (opaque bytes or packed array)
	AttributeBool                    // BOOL
	AttributeTimestamp               // TS
)

// String returns the wire tag of the attribute type
func (t AttributeType) String() string {
	switch t {
	case AttributeString:
		return "S"
	case AttributeNumber:
		return "N"
	case AttributeBinary:
		return "B"
	case AttributeBool:
		return "BOOL"
	case AttributeTimestamp:
		return "TS"
	default:
		return "unknown"
	}
}

// ParseAttributeType converts a wire tag into an AttributeType
func ParseAttributeType(tag string) AttributeType {
	switch tag {
	case "S":
		return AttributeString
	case "N":
		return AttributeNumber
	case "B":
		return AttributeBinary
	case "BOOL":
		return AttributeBool
	case "TS":
		return AttributeTimestamp
	default:
		return AttributeUnknown
	}
}
