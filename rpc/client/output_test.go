package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
)

const containersXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListAllMyBucketsResult>
  <Owner><ID>1</ID><DisplayName>admin</DisplayName></Owner>
  <Buckets>
    <Bucket><Name>bigdata</Name><CreationDate>2024-01-01T00:00:00.000Z</CreationDate><Id>1</Id></Bucket>
    <Bucket><Name>users</Name><CreationDate>2024-01-02T00:00:00.000Z</CreationDate><Id>2</Id></Bucket>
  </Buckets>
</ListAllMyBucketsResult>`

const contentsXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <Name>bigdata</Name>
  <NextMarker>events/1</NextMarker>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>events/0</Key><Size>12</Size><LastSequenceID>7</LastSequenceID><Mode>040755</Mode></Contents>
  <Contents><Key>events/1</Key><Size>0</Size></Contents>
  <CommonPrefixes><Prefix>events/sub/</Prefix><InodeNumber>42</InodeNumber></CommonPrefixes>
</ListBucketResult>`

func TestContainerOutputs(t *testing.T) {
	c, _ := newVerifierClient(t, 1, sequence(
		respond(http.StatusOK, containersXML),
		respond(http.StatusOK, contentsXML),
		respond(http.StatusOK, `{"ErrorCode":-2,"ErrorMessage":"No such file or directory"}`),
	))

	containers, err := c.Container.List()
	require.NoError(t, err)
	require.Len(t, containers.Containers, 2)
	assert.Equal(t, ContainerInfo{Name: "bigdata", CreationDate: "2024-01-01T00:00:00.000Z", ID: 1}, containers.Containers[0])
	assert.Nil(t, containers.Error)

	contents, err := c.Container.Contents("bigdata", GetContainerContentsInput{Path: "events/"})
	require.NoError(t, err)
	assert.Equal(t, "bigdata", contents.Name)
	assert.Equal(t, "events/1", contents.NextMarker)
	assert.Equal(t, 1000, contents.MaxKeys)
	assert.False(t, contents.IsTruncated)
	require.Len(t, contents.Contents, 2)
	assert.Equal(t, "events/0", contents.Contents[0].Key)
	assert.Equal(t, int64(12), contents.Contents[0].Size)
	assert.Equal(t, int64(7), contents.Contents[0].LastSequenceID)
	require.Len(t, contents.CommonPrefixes, 1)
	assert.Equal(t, int64(42), contents.CommonPrefixes[0].InodeNumber)

	// listings answered with a JSON document carry it as error
	contents, err = c.Container.Contents("bigdata", GetContainerContentsInput{Path: "missing/"})
	require.NoError(t, err)
	assert.Equal(t, "No such file or directory", contents.Error["ErrorMessage"])
	assert.Empty(t, contents.Contents)
}

func TestKVOutputs(t *testing.T) {
	c, _ := newVerifierClient(t, 1, sequence(
		respond(http.StatusOK, `{"Item":{"age":{"N":"42"},"ratio":{"N":"0.5"},"name":{"S":"alice"},"ok":{"BOOL":true},"seen":{"TS":"1700000000:5"}}}`),
		respond(http.StatusOK, `<not-json/>`),
		respond(http.StatusOK, `garbage`),
	))

	item, err := c.KV.Get("bigdata", "users", "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), item["age"])
	assert.Equal(t, 0.5, item["ratio"])
	assert.Equal(t, "alice", item["name"])
	assert.Equal(t, true, item["ok"])
	assert.Contains(t, item, "seen")

	_, err = c.KV.Get("bigdata", "users", "alice", nil)
	assert.True(t, common.IsProtocol(err), "xml for a json output must fail, got %v", err)

	_, err = c.KV.Get("bigdata", "users", "alice", nil)
	var protoErr *common.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, http.StatusOK, protoErr.StatusCode)
	assert.Equal(t, []byte("garbage"), protoErr.Body)
}

func TestStreamOutputs(t *testing.T) {
	c, _ := newVerifierClient(t, 1, sequence(
		respond(http.StatusOK, `{"ShardCount":4,"RetentionPeriodHours":48}`),
		respond(http.StatusOK, `{"Location":"AQAAAAAAAAAAAAAAAAAAAA=="}`),
		respond(http.StatusOK, `{"FailedRecordCount":1,"Records":[{"SequenceNumber":10,"ShardId":0},{"ErrorCode":-1,"ErrorMessage":"full"}]}`),
		respond(http.StatusOK, `{"NextLocation":"next","MSecBehindLatest":3,"RecordsBehindLatest":1,"Records":[{"ArrivalTimeSec":1,"SequenceNumber":11,"Data":"aGVsbG8=","PartitionKey":"pk"}]}`),
	))

	describe, err := c.Stream.Describe("bigdata", "events/")
	require.NoError(t, err)
	assert.Equal(t, &DescribeStreamOutput{ShardCount: 4, RetentionPeriodHours: 48}, describe)

	seek, err := c.Stream.Seek("bigdata", SeekShardInput{ShardPath: "events/0", SeekType: SeekEarliest})
	require.NoError(t, err)
	assert.Equal(t, "AQAAAAAAAAAAAAAAAAAAAA==", seek.Location)

	put, err := c.Stream.PutRecords("bigdata", "events/", []Record{{Data: []byte("a")}, {Data: []byte("b")}})
	require.NoError(t, err)
	assert.Equal(t, 1, put.FailedRecordCount)
	require.Len(t, put.Records, 2)
	assert.Equal(t, int64(10), put.Records[0].SequenceNumber)
	assert.Equal(t, "full", put.Records[1].ErrorMessage)

	records, err := c.Stream.GetRecords("bigdata", "events/0", seek.Location, 10)
	require.NoError(t, err)
	assert.Equal(t, "next", records.NextLocation)
	require.Len(t, records.Records, 1)
	assert.Equal(t, []byte("hello"), records.Records[0].Data)
	assert.Equal(t, "pk", records.Records[0].PartitionKey)
}
