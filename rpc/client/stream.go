package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"net/http"
	"slices"
)

// Stream gives access to the streams of a container
type Stream struct {
	client *Client
}

// Create creates a stream with shardCount shards (retention 0 = 24 hours)
func (m *Stream) Create(container, streamPath string, shardCount, retentionPeriodHours int, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, CreateStreamInput{
		StreamPath:           streamPath,
		ShardCount:           shardCount,
		RetentionPeriodHours: retentionPeriodHours,
	}, opts...)
}

// Update changes the shard count of a stream
func (m *Stream) Update(container, streamPath string, shardCount int, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, UpdateStreamInput{StreamPath: streamPath, ShardCount: shardCount}, opts...)
}

// Describe reads the configuration of a stream
func (m *Stream) Describe(container, streamPath string, opts ...RequestOption) (*DescribeStreamOutput, error) {
	out, _, err := doOutput[*DescribeStreamOutput](m.client, container, DescribeStreamInput{StreamPath: streamPath}, opts)
	return out, err
}

// Seek resolves a location in a shard
func (m *Stream) Seek(container string, input SeekShardInput, opts ...RequestOption) (*SeekShardOutput, error) {
	out, _, err := doOutput[*SeekShardOutput](m.client, container, input, opts)
	return out, err
}

// PutRecords appends records to a stream
func (m *Stream) PutRecords(container, streamPath string, records []Record, opts ...RequestOption) (*PutRecordsOutput, error) {
	out, _, err := doOutput[*PutRecordsOutput](m.client, container, PutRecordsInput{StreamPath: streamPath, Records: records}, opts)
	return out, err
}

// GetRecords reads records of a shard starting at location
func (m *Stream) GetRecords(container, shardPath, location string, limit int, opts ...RequestOption) (*GetRecordsOutput, error) {
	out, _, err := doOutput[*GetRecordsOutput](m.client, container, GetRecordsInput{ShardPath: shardPath, Location: location, Limit: limit}, opts)
	return out, err
}

// Delete deletes every shard of a stream and then the stream directory. A stream
// that does not exist is not an error.
func (m *Stream) Delete(container, streamPath string, opts ...RequestOption) error {
	streamPath = ensureTrailingSlash(streamPath)

	listOpts := append(slices.Clone(opts), WithRaiseForStatus(common.RaiseUnless(http.StatusOK, http.StatusNotFound)))
	listing, resp, err := doOutput[*GetContainerContentsOutput](m.client, container, GetContainerContentsInput{Path: streamPath}, listOpts)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		Logger.Debugf("Stream %s/%s does not exist, nothing to delete", container, streamPath)
		return nil
	}
	if err != nil {
		return err
	}

	for _, shard := range listing.Contents {
		if _, err := m.client.Object.Delete(container, shard.Key, opts...); err != nil {
			return err
		}
	}

	_, err = m.client.Object.Delete(container, streamPath, opts...)
	return err
}
