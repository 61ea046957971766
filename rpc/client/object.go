package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
)

// Object gives access to the objects of a container
type Object struct {
	client *Client
}

// Get reads an object. A positive offset reads from that byte on, bounded by
// numBytes when that is positive.
func (m *Object) Get(container, path string, offset, numBytes int64, opts ...RequestOption) ([]byte, error) {
	resp, err := m.client.Do(container, GetObjectInput{Path: path, Offset: offset, NumBytes: numBytes}, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Put writes body to the object at path, or appends it
func (m *Object) Put(container, path string, body []byte, appendData bool, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, PutObjectInput{Path: path, Body: body, Append: appendData}, opts...)
}

// Delete deletes the object (or empty directory) at path
func (m *Object) Delete(container, path string, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, DeleteObjectInput{Path: path}, opts...)
}

// Head checks the object at path exists and returns its headers
func (m *Object) Head(container, path string, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, HeadObjectInput{Path: path}, opts...)
}
