package client

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/serializer"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Input is an operation that can be encoded into a request. It is implemented only
// by the input types of this package, one per common.OpKind.
type Input interface {
	// Kind returns the operation kind of the input
	Kind() common.OpKind
	// encode fills method, path, query, headers and body of req
	encode(container string, req *common.EncodedRequest) error
}

// --------------------------------------------------------------------------
// Container
// --------------------------------------------------------------------------

// GetContainersInput lists the containers visible to the caller
type GetContainersInput struct{}

// GetContainerContentsInput lists the objects and directories below Path
type GetContainerContentsInput struct {
	Path string
	// GetAllAttributes retrieves all attributes of the listed objects
	GetAllAttributes bool
	// DirectoriesOnly lists common prefixes only
	DirectoriesOnly bool
	// Limit bounds the number of listed entries (0 = server default)
	Limit int
	// Marker continues a truncated listing
	Marker string
}

func (GetContainersInput) Kind() common.OpKind { return common.OpGetContainers }

func (in GetContainersInput) encode(_ string, req *common.EncodedRequest) error {
	req.Method = http.MethodGet
	req.Path = "/"
	return nil
}

func (GetContainerContentsInput) Kind() common.OpKind { return common.OpGetContainerContents }

func (in GetContainerContentsInput) encode(container string, req *common.EncodedRequest) error {
	if container == "" {
		return fmt.Errorf("%s requires a container", in.Kind())
	}

	query := url.Values{}
	query.Set("prefix", in.Path)
	if in.GetAllAttributes {
		query.Set("prefix-info", "1")
	}
	if in.DirectoriesOnly {
		query.Set("prefix-only", "1")
	}
	if in.Limit > 0 {
		query.Set("max-keys", strconv.Itoa(in.Limit))
	}
	if in.Marker != "" {
		query.Set("marker", in.Marker)
	}

	req.Method = http.MethodGet
	req.Path = joinPath(container)
	req.Query = query
	return nil
}

// --------------------------------------------------------------------------
// Object
// --------------------------------------------------------------------------

// HeadObjectInput checks an object exists
type HeadObjectInput struct {
	Path string
}

// GetObjectInput reads an object. A positive Offset requests a byte range which
// is bounded by NumBytes when that is positive.
type GetObjectInput struct {
	Path     string
	Offset   int64
	NumBytes int64
}

// PutObjectInput writes an object, or appends to it when Append is set
type PutObjectInput struct {
	Path   string
	Body   []byte
	Append bool
}

// DeleteObjectInput deletes an object or an empty directory
type DeleteObjectInput struct {
	Path string
}

func (HeadObjectInput) Kind() common.OpKind { return common.OpHeadObject }

func (in HeadObjectInput) encode(container string, req *common.EncodedRequest) error {
	req.Method = http.MethodHead
	req.Path = joinPath(container, in.Path)
	return nil
}

func (GetObjectInput) Kind() common.OpKind { return common.OpGetObject }

func (in GetObjectInput) encode(container string, req *common.EncodedRequest) error {
	if in.Offset < 0 || in.NumBytes < 0 {
		return fmt.Errorf("invalid range offset=%d num_bytes=%d", in.Offset, in.NumBytes)
	}

	if in.Offset > 0 {
		rangeValue := "bytes=" + strconv.FormatInt(in.Offset, 10)
		if in.NumBytes > 0 {
			rangeValue += "-" + strconv.FormatInt(in.Offset+in.NumBytes-1, 10)
		}
		req.Headers.Set(common.HeaderRange, rangeValue)
	}

	req.Method = http.MethodGet
	req.Path = joinPath(container, in.Path)
	return nil
}

func (PutObjectInput) Kind() common.OpKind { return common.OpPutObject }

func (in PutObjectInput) encode(container string, req *common.EncodedRequest) error {
	if in.Append {
		req.Headers.Set(common.HeaderRange, "-1")
	}

	req.Method = http.MethodPut
	req.Path = joinPath(container, in.Path)
	req.Body = in.Body
	if req.Body == nil {
		req.Body = []byte{}
	}
	return nil
}

func (DeleteObjectInput) Kind() common.OpKind { return common.OpDeleteObject }

func (in DeleteObjectInput) encode(container string, req *common.EncodedRequest) error {
	req.Method = http.MethodDelete
	req.Path = joinPath(container, in.Path)
	return nil
}

// --------------------------------------------------------------------------
// KV
// --------------------------------------------------------------------------

// PutItemInput creates or replaces the item Key of the table at TablePath.
// Path, when set, addresses the item directly and overrides TablePath and Key.
type PutItemInput struct {
	TablePath  string
	Key        string
	Path       string
	Attributes map[string]any
	Condition  string
}

// UpdateItemInput updates an item by expression or by attributes. If Expression
// or AlternateExpression is set the update is sent as UpdateItem, otherwise the
// attributes are written with PutItem semantics.
type UpdateItemInput struct {
	TablePath           string
	Key                 string
	Path                string
	Attributes          map[string]any
	Expression          string
	AlternateExpression string
	Condition           string
	// UpdateMode defaults to CreateOrReplaceAttributes
	UpdateMode string
}

// GetItemInput reads the attributes AttributeNames of one item (all when empty)
type GetItemInput struct {
	TablePath      string
	Key            string
	Path           string
	AttributeNames []string
}

// GetItemsInput reads one page of items. Segment and TotalSegments are forwarded
// as given when TotalSegments is positive. Limit is optional: a nil limit leaves the
// page size to the server and, for a cursor, means no overall limit.
type GetItemsInput struct {
	TablePath         string
	Path              string
	TableName         string
	AttributeNames    []string
	FilterExpression  string
	Marker            string
	ShardingKey       string
	Limit             *int
	Segment           int
	TotalSegments     int
	SortKeyRangeStart string
	SortKeyRangeEnd   string
}

func (PutItemInput) Kind() common.OpKind { return common.OpPutItem }

func (in PutItemInput) encode(container string, req *common.EncodedRequest) error {
	item, err := serializer.EncodeItem(in.Attributes)
	if err != nil {
		return err
	}

	body := map[string]any{"Item": item}
	if in.Condition != "" {
		body["ConditionExpression"] = in.Condition
	}

	req.Method = http.MethodPut
	req.Path = joinPath(container, itemPath(in.Path, in.TablePath, in.Key))
	return setJSONBody(req, "PutItem", body)
}

func (UpdateItemInput) Kind() common.OpKind { return common.OpUpdateItem }

func (in UpdateItemInput) encode(container string, req *common.EncodedRequest) error {
	if in.Expression == "" && in.AlternateExpression == "" && len(in.Attributes) == 0 {
		return fmt.Errorf("one of expression or attributes must be set for %s", in.Kind())
	}

	updateMode := in.UpdateMode
	if updateMode == "" {
		updateMode = "CreateOrReplaceAttributes"
	}
	body := map[string]any{"UpdateMode": updateMode}
	if in.Condition != "" {
		body["ConditionExpression"] = in.Condition
	}

	function := "UpdateItem"
	req.Method = http.MethodPost
	switch {
	case in.Expression != "" || in.AlternateExpression != "":
		if in.Expression != "" {
			body["UpdateExpression"] = in.Expression
		}
		if in.AlternateExpression != "" {
			body["AlternateUpdateExpression"] = in.AlternateExpression
		}
	default:
		item, err := serializer.EncodeItem(in.Attributes)
		if err != nil {
			return err
		}
		function = "PutItem"
		req.Method = http.MethodPut
		body["Item"] = item
	}

	req.Path = joinPath(container, itemPath(in.Path, in.TablePath, in.Key))
	return setJSONBody(req, function, body)
}

func (GetItemInput) Kind() common.OpKind { return common.OpGetItem }

func (in GetItemInput) encode(container string, req *common.EncodedRequest) error {
	body := map[string]any{"AttributesToGet": attributesToGet(in.AttributeNames)}

	req.Method = http.MethodPut
	req.Path = joinPath(container, itemPath(in.Path, in.TablePath, in.Key))
	return setJSONBody(req, "GetItem", body)
}

func (GetItemsInput) Kind() common.OpKind { return common.OpGetItems }

func (in GetItemsInput) encode(container string, req *common.EncodedRequest) error {
	body := map[string]any{"AttributesToGet": attributesToGet(in.AttributeNames)}
	if in.TableName != "" {
		body["TableName"] = in.TableName
	}
	if in.FilterExpression != "" {
		body["FilterExpression"] = in.FilterExpression
	}
	if in.Marker != "" {
		body["Marker"] = in.Marker
	}
	if in.ShardingKey != "" {
		body["ShardingKey"] = in.ShardingKey
	}
	if in.Limit != nil {
		body["Limit"] = *in.Limit
	}
	if in.TotalSegments > 0 {
		body["Segment"] = in.Segment
		body["TotalSegment"] = in.TotalSegments
	}
	if in.SortKeyRangeStart != "" {
		body["SortKeyRangeStart"] = in.SortKeyRangeStart
	}
	if in.SortKeyRangeEnd != "" {
		body["SortKeyRangeEnd"] = in.SortKeyRangeEnd
	}

	path := in.Path
	if path == "" {
		path = in.TablePath
	}

	req.Method = http.MethodPut
	req.Path = joinPath(container, path)
	return setJSONBody(req, "GetItems", body)
}

// --------------------------------------------------------------------------
// Stream
// --------------------------------------------------------------------------

// SeekType selects how SeekShard resolves a location
type SeekType string

const (
	SeekEarliest SeekType = "EARLIEST"
	SeekLatest   SeekType = "LATEST"
	SeekSequence SeekType = "SEQUENCE"
	SeekTime     SeekType = "TIME"
)

// CreateStreamInput creates a stream. RetentionPeriodHours defaults to 24.
type CreateStreamInput struct {
	StreamPath           string
	ShardCount           int
	RetentionPeriodHours int
}

// UpdateStreamInput changes the shard count of a stream
type UpdateStreamInput struct {
	StreamPath string
	ShardCount int
}

// DescribeStreamInput reads the configuration of a stream
type DescribeStreamInput struct {
	StreamPath string
}

// SeekShardInput resolves a location in the shard at ShardPath (stream path plus
// shard id)
type SeekShardInput struct {
	ShardPath              string
	SeekType               SeekType
	StartingSequenceNumber int64
	TimestampSec           int64
	TimestampNSec          int64
}

// Record is one record of a PutRecords request
type Record struct {
	Data         []byte
	ClientInfo   []byte
	ShardID      *int
	PartitionKey string
}

// PutRecordsInput appends records to a stream
type PutRecordsInput struct {
	StreamPath string
	Records    []Record
}

// GetRecordsInput reads up to Limit records (0 = server default) from Location of
// the shard at ShardPath
type GetRecordsInput struct {
	ShardPath string
	Location  string
	Limit     int
}

type putRecordBody struct {
	Data         []byte `json:"Data"`
	ClientInfo   []byte `json:"ClientInfo,omitempty"`
	ShardID      *int   `json:"ShardId,omitempty"`
	PartitionKey string `json:"PartitionKey,omitempty"`
}

func (CreateStreamInput) Kind() common.OpKind { return common.OpCreateStream }

func (in CreateStreamInput) encode(container string, req *common.EncodedRequest) error {
	if in.ShardCount < 1 {
		return fmt.Errorf("shard count must be at least 1, got %d", in.ShardCount)
	}
	retention := in.RetentionPeriodHours
	if retention <= 0 {
		retention = 24
	}

	req.Method = http.MethodPost
	req.Path = joinPath(container, in.StreamPath)
	return setJSONBody(req, "CreateStream", map[string]any{
		"ShardCount":           in.ShardCount,
		"RetentionPeriodHours": retention,
	})
}

func (UpdateStreamInput) Kind() common.OpKind { return common.OpUpdateStream }

func (in UpdateStreamInput) encode(container string, req *common.EncodedRequest) error {
	if in.ShardCount < 1 {
		return fmt.Errorf("shard count must be at least 1, got %d", in.ShardCount)
	}

	req.Method = http.MethodPost
	req.Path = joinPath(container, in.StreamPath)
	return setJSONBody(req, "UpdateStream", map[string]any{"ShardCount": in.ShardCount})
}

func (DescribeStreamInput) Kind() common.OpKind { return common.OpDescribeStream }

func (in DescribeStreamInput) encode(container string, req *common.EncodedRequest) error {
	req.Method = http.MethodPut
	req.Path = joinPath(container, in.StreamPath)
	req.Headers.Set(common.HeaderFunction, "DescribeStream")
	return nil
}

func (SeekShardInput) Kind() common.OpKind { return common.OpSeekShard }

func (in SeekShardInput) encode(container string, req *common.EncodedRequest) error {
	body := map[string]any{"Type": string(in.SeekType)}

	switch in.SeekType {
	case SeekSequence:
		body["StartingSequenceNumber"] = in.StartingSequenceNumber
	case SeekTime:
		body["TimestampSec"] = in.TimestampSec
		body["TimestampNSec"] = in.TimestampNSec
	case SeekEarliest, SeekLatest:
	default:
		return fmt.Errorf("unsupported seek type %q. must be one of %s, %s, %s, %s",
			in.SeekType, SeekSequence, SeekTime, SeekEarliest, SeekLatest)
	}

	req.Method = http.MethodPut
	req.Path = joinPath(container, in.ShardPath)
	return setJSONBody(req, "SeekShard", body)
}

func (PutRecordsInput) Kind() common.OpKind { return common.OpPutRecords }

func (in PutRecordsInput) encode(container string, req *common.EncodedRequest) error {
	records := make([]putRecordBody, len(in.Records))
	for i, r := range in.Records {
		records[i] = putRecordBody{
			Data:         r.Data,
			ClientInfo:   r.ClientInfo,
			ShardID:      r.ShardID,
			PartitionKey: r.PartitionKey,
		}
		if records[i].Data == nil {
			records[i].Data = []byte{}
		}
	}

	req.Method = http.MethodPost
	req.Path = joinPath(container, in.StreamPath)
	return setJSONBody(req, "PutRecords", map[string]any{"Records": records})
}

func (GetRecordsInput) Kind() common.OpKind { return common.OpGetRecords }

func (in GetRecordsInput) encode(container string, req *common.EncodedRequest) error {
	body := map[string]any{"Location": in.Location}
	if in.Limit > 0 {
		body["Limit"] = in.Limit
	}

	req.Method = http.MethodPut
	req.Path = joinPath(container, in.ShardPath)
	return setJSONBody(req, "GetRecords", body)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Int returns a pointer to v, for optional input fields such as GetItemsInput.Limit
func Int(v int) *int {
	return &v
}

// setJSONBody marshals body and selects function through the function header
func setJSONBody(req *common.EncodedRequest, function string, body any) error {
	data, err := serializer.EncodeJSONBody(body)
	if err != nil {
		return err
	}
	req.Body = data
	req.Headers.Set(common.HeaderFunction, function)
	req.Headers.Set(common.HeaderContentType, common.ContentTypeJSON)
	return nil
}

// itemPath returns path if set, else the key joined to the table path
func itemPath(path, tablePath, key string) string {
	if path != "" {
		return path
	}
	return joinPath(tablePath, key)
}

func attributesToGet(names []string) string {
	if len(names) == 0 {
		return "*"
	}
	return strings.Join(names, ",")
}
