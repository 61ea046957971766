package serializer

import (
	"bytes"
	"encoding/xml"
	"github.com/bytedance/sonic"
)

// BodyFormat is the detected format of a response body
type BodyFormat uint8

const (
	FormatUnknown BodyFormat = iota
	FormatJSON
	FormatXML
)

// String returns the name of the format
func (f BodyFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// DetectFormat sniffs the first non-whitespace byte of body. Objects and arrays are
// JSON, a leading '<' is XML.
func DetectFormat(body []byte) BodyFormat {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return FormatJSON
	case '<':
		return FormatXML
	default:
		return FormatUnknown
	}
}

// DecodeBody unmarshals body into v using the given format
func DecodeBody(format BodyFormat, body []byte, v any) error {
	switch format {
	case FormatJSON:
		if err := sonic.Unmarshal(body, v); err != nil {
			return &DecodingError{What: "json body", Reason: "unmarshal failed", Err: err}
		}
		return nil
	case FormatXML:
		if err := xml.Unmarshal(body, v); err != nil {
			return &DecodingError{What: "xml body", Reason: "unmarshal failed", Err: err}
		}
		return nil
	default:
		return &DecodingError{What: "body", Reason: "neither json nor xml"}
	}
}

// EncodeJSONBody marshals a structured request body
func EncodeJSONBody(v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Value: v, Reason: err.Error()}
	}
	return data, nil
}
