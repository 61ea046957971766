package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Operation Kind Definition
// --------------------------------------------------------------------------

// OpKind identifies one of the closed set of operations supported by the service
type OpKind uint8

const (
	OpUnknown OpKind = iota

	// Container operations

	OpGetContainers        // List all containers
	OpGetContainerContents // List the contents of a container path

	// Object operations

	OpHeadObject   // Check an object exists
	OpGetObject    // Read an object (optionally a byte range)
	OpPutObject    // Write or append to an object
	OpDeleteObject // Delete an object

	// KV operations

	OpPutItem    // Write an item
	OpUpdateItem // Update an item by expression or attributes
	OpGetItem    // Read an item
	OpGetItems   // Read a page of items

	// Stream operations

	OpCreateStream   // Create a stream
	OpUpdateStream   // Change the shard count of a stream
	OpDescribeStream // Read the stream configuration
	OpSeekShard      // Resolve a location in a shard
	OpPutRecords     // Append records to a stream
	OpGetRecords     // Read records from a shard location
)

// AllOpKinds lists every known operation kind
var AllOpKinds = []OpKind{
	OpGetContainers, OpGetContainerContents,
	OpHeadObject, OpGetObject, OpPutObject, OpDeleteObject,
	OpPutItem, OpUpdateItem, OpGetItem, OpGetItems,
	OpCreateStream, OpUpdateStream, OpDescribeStream, OpSeekShard, OpPutRecords, OpGetRecords,
}

// String returns the string representation of an OpKind
func (k OpKind) String() string {
	switch k {
	case OpGetContainers:
		return "GetContainers"
	case OpGetContainerContents:
		return "GetContainerContents"
	case OpHeadObject:
		return "HeadObject"
	case OpGetObject:
		return "GetObject"
	case OpPutObject:
		return "PutObject"
	case OpDeleteObject:
		return "DeleteObject"
	case OpPutItem:
		return "PutItem"
	case OpUpdateItem:
		return "UpdateItem"
	case OpGetItem:
		return "GetItem"
	case OpGetItems:
		return "GetItems"
	case OpCreateStream:
		return "CreateStream"
	case OpUpdateStream:
		return "UpdateStream"
	case OpDescribeStream:
		return "DescribeStream"
	case OpSeekShard:
		return "SeekShard"
	case OpPutRecords:
		return "PutRecords"
	case OpGetRecords:
		return "GetRecords"
	default:
		return "unknown"
	}
}

// ParseOpKind converts the string representation back to an OpKind
func ParseOpKind(s string) (OpKind, error) {
	for _, k := range AllOpKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return OpUnknown, fmt.Errorf("unknown operation kind: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for OpKind.
func (k OpKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OpKind.
func (k *OpKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOpKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// --------------------------------------------------------------------------
// Wire Headers
// --------------------------------------------------------------------------

const (
	// HeaderFunction selects the operation for structured (JSON) requests
	HeaderFunction = "X-v3io-function"
	// HeaderSessionKey carries the caller's opaque credential
	HeaderSessionKey = "X-v3io-session-key"
	// HeaderContentType is set for JSON bodies
	HeaderContentType = "Content-Type"
	// HeaderRange selects a byte range (get) or append mode (put) for objects
	HeaderRange = "Range"

	ContentTypeJSON = "application/json"
)
