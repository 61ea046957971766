package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/serializer"
)

// Item is a decoded table item, attribute name to value
type Item map[string]any

// --------------------------------------------------------------------------
// Container Outputs (XML)
// --------------------------------------------------------------------------

// ErrorOutput is part of the outputs of XML listings. The service answers failed
// listings with a JSON document, which is kept in Error instead of the listing.
type ErrorOutput struct {
	Error map[string]any `xml:"-"`
}

func (e *ErrorOutput) setError(doc map[string]any) {
	e.Error = doc
}

// ContainerInfo describes one container
type ContainerInfo struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
	ID           int    `xml:"Id"`
}

// GetContainersOutput is the output of GetContainers
type GetContainersOutput struct {
	ErrorOutput
	Containers []ContainerInfo `xml:"Buckets>Bucket"`
}

// ContainerContent is an object of a container listing
type ContainerContent struct {
	Key            string `xml:"Key"`
	Size           int64  `xml:"Size"`
	LastSequenceID int64  `xml:"LastSequenceID"`
	LastModified   string `xml:"LastModified"`
	Mode           string `xml:"Mode"`
	AccessTime     string `xml:"AccessTime"`
	CreatingTime   string `xml:"CreatingTime"`
	GID            string `xml:"GID"`
	UID            string `xml:"UID"`
	InodeNumber    int64  `xml:"InodeNumber"`
}

// ContainerCommonPrefix is a directory of a container listing
type ContainerCommonPrefix struct {
	Prefix       string `xml:"Prefix"`
	LastModified string `xml:"LastModified"`
	AccessTime   string `xml:"AccessTime"`
	CreatingTime string `xml:"CreatingTime"`
	Mode         string `xml:"Mode"`
	GID          string `xml:"GID"`
	UID          string `xml:"UID"`
	InodeNumber  int64  `xml:"InodeNumber"`
}

// GetContainerContentsOutput is the output of GetContainerContents
type GetContainerContentsOutput struct {
	ErrorOutput
	Name           string                  `xml:"Name"`
	NextMarker     string                  `xml:"NextMarker"`
	MaxKeys        int                     `xml:"MaxKeys"`
	IsTruncated    bool                    `xml:"IsTruncated"`
	Contents       []ContainerContent      `xml:"Contents"`
	CommonPrefixes []ContainerCommonPrefix `xml:"CommonPrefixes"`
}

// --------------------------------------------------------------------------
// KV Outputs (JSON)
// --------------------------------------------------------------------------

// GetItemOutput is the output of GetItem
type GetItemOutput struct {
	Item Item
}

// GetItemsOutput is the output of GetItems
type GetItemsOutput struct {
	// Last is set when the page contains the last item of the scan
	Last       bool
	NextMarker string
	Items      []Item
}

type getItemWire struct {
	Item map[string]serializer.TypedAttribute `json:"Item"`
}

type getItemsWire struct {
	LastItemIncluded string                                 `json:"LastItemIncluded"`
	NextMarker       string                                 `json:"NextMarker"`
	Items            []map[string]serializer.TypedAttribute `json:"Items"`
}

// --------------------------------------------------------------------------
// Stream Outputs (JSON)
// --------------------------------------------------------------------------

// DescribeStreamOutput is the output of DescribeStream
type DescribeStreamOutput struct {
	ShardCount           int `json:"ShardCount"`
	RetentionPeriodHours int `json:"RetentionPeriodHours"`
}

// SeekShardOutput is the output of SeekShard
type SeekShardOutput struct {
	Location string `json:"Location"`
}

// PutRecordResult is the result of one record of PutRecords
type PutRecordResult struct {
	SequenceNumber int64  `json:"SequenceNumber"`
	ShardID        int    `json:"ShardId"`
	ErrorCode      int    `json:"ErrorCode"`
	ErrorMessage   string `json:"ErrorMessage"`
}

// PutRecordsOutput is the output of PutRecords
type PutRecordsOutput struct {
	FailedRecordCount int               `json:"FailedRecordCount"`
	Records           []PutRecordResult `json:"Records"`
}

// GetRecordResult is one record returned by GetRecords
type GetRecordResult struct {
	ArrivalTimeSec  int64  `json:"ArrivalTimeSec"`
	ArrivalTimeNSec int64  `json:"ArrivalTimeNSec"`
	SequenceNumber  int64  `json:"SequenceNumber"`
	ClientInfo      []byte `json:"ClientInfo"`
	PartitionKey    string `json:"PartitionKey"`
	Data            []byte `json:"Data"`
}

// GetRecordsOutput is the output of GetRecords
type GetRecordsOutput struct {
	NextLocation        string            `json:"NextLocation"`
	MSecBehindLatest    int64             `json:"MSecBehindLatest"`
	RecordsBehindLatest int64             `json:"RecordsBehindLatest"`
	Records             []GetRecordResult `json:"Records"`
}

// --------------------------------------------------------------------------
// Output Decoders
// --------------------------------------------------------------------------

// outputDecoder returns the decoder of the typed output of kind, or nil for
// operations without an output
func outputDecoder(kind common.OpKind) common.OutputDecoder {
	switch kind {
	case common.OpGetContainers:
		return xmlOutput[GetContainersOutput]()
	case common.OpGetContainerContents:
		return xmlOutput[GetContainerContentsOutput]()
	case common.OpGetItem:
		return jsonOutput(kind, func(wire *getItemWire) (any, error) {
			item, err := serializer.DecodeItem(wire.Item)
			if err != nil {
				return nil, err
			}
			if item == nil {
				item = map[string]any{}
			}
			return &GetItemOutput{Item: item}, nil
		})
	case common.OpGetItems:
		return jsonOutput(kind, func(wire *getItemsWire) (any, error) {
			out := &GetItemsOutput{
				Last:       wire.LastItemIncluded == "TRUE",
				NextMarker: wire.NextMarker,
				Items:      make([]Item, 0, len(wire.Items)),
			}
			for _, typed := range wire.Items {
				item, err := serializer.DecodeItem(typed)
				if err != nil {
					return nil, err
				}
				out.Items = append(out.Items, item)
			}
			return out, nil
		})
	case common.OpDescribeStream:
		return jsonOutput(kind, identity[DescribeStreamOutput])
	case common.OpSeekShard:
		return jsonOutput(kind, identity[SeekShardOutput])
	case common.OpPutRecords:
		return jsonOutput(kind, identity[PutRecordsOutput])
	case common.OpGetRecords:
		return jsonOutput(kind, identity[GetRecordsOutput])
	default:
		return nil
	}
}

type errorSetter interface {
	setError(doc map[string]any)
}

// xmlOutput decodes an XML listing into T, or a JSON error document into its
// ErrorOutput
func xmlOutput[T any, PT interface {
	*T
	errorSetter
}]() common.OutputDecoder {
	return func(format serializer.BodyFormat, body []byte) (any, error) {
		out := PT(new(T))
		if format == serializer.FormatJSON {
			var doc map[string]any
			if err := serializer.DecodeBody(format, body, &doc); err != nil {
				return nil, err
			}
			out.setError(doc)
			return out, nil
		}
		if err := serializer.DecodeBody(format, body, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// jsonOutput decodes a JSON body into the wire type W and converts it to the output
func jsonOutput[W any](kind common.OpKind, convert func(*W) (any, error)) common.OutputDecoder {
	return func(format serializer.BodyFormat, body []byte) (any, error) {
		if format != serializer.FormatJSON {
			return nil, &serializer.DecodingError{What: kind.String() + " output", Reason: "expected json, got " + format.String()}
		}
		wire := new(W)
		if err := serializer.DecodeBody(format, body, wire); err != nil {
			return nil, err
		}
		return convert(wire)
	}
}

func identity[T any](v *T) (any, error) {
	return v, nil
}
