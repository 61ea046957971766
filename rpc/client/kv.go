package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/serializer"
	"slices"
)

// schemaFileName is the name of the schema object of a table
const schemaFileName = ".#schema"

// KV gives access to the table items of a container
type KV struct {
	client *Client
}

// SchemaField describes one attribute of a table schema
type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Put creates or replaces the item key of the table at tablePath
func (m *KV) Put(container, tablePath, key string, attributes map[string]any, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, PutItemInput{TablePath: tablePath, Key: key, Attributes: attributes}, opts...)
}

// PutMany writes all items through one batch. Status codes are collected instead
// of raised; the returned error is the status error of the first failed item.
func (m *KV) PutMany(container, tablePath string, items map[string]map[string]any, opts ...RequestOption) (*common.Responses, error) {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	batch := m.client.NewBatch()
	for _, key := range keys {
		if err := batch.Add(container, PutItemInput{TablePath: tablePath, Key: key, Attributes: items[key]}, opts...); err != nil {
			return nil, err
		}
	}

	responses, err := batch.Wait(common.RaiseNever)
	if err != nil {
		return nil, err
	}

	result := common.NewResponses()
	for _, resp := range responses {
		result.Add(resp)
	}
	return result, result.CheckStatus()
}

// Get reads the attributes (all when none are given) of the item key
func (m *KV) Get(container, tablePath, key string, attributeNames []string, opts ...RequestOption) (Item, error) {
	out, _, err := doOutput[*GetItemOutput](m.client, container, GetItemInput{TablePath: tablePath, Key: key, AttributeNames: attributeNames}, opts)
	if err != nil {
		return nil, err
	}
	return out.Item, nil
}

// Scan reads one page of items
func (m *KV) Scan(container string, input GetItemsInput, opts ...RequestOption) (*GetItemsOutput, error) {
	out, _, err := doOutput[*GetItemsOutput](m.client, container, input, opts)
	return out, err
}

// NewCursor returns a cursor over the items selected by input. A non-nil
// input.Limit bounds the total number of items returned by the cursor; a limit of
// zero returns nothing without a request.
func (m *KV) NewCursor(container string, input GetItemsInput, opts ...RequestOption) *ItemsCursor {
	return newItemsCursor(m.client, container, input, opts)
}

// Update updates an item by expression or attributes
func (m *KV) Update(container string, input UpdateItemInput, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, input, opts...)
}

// Delete deletes the item key
func (m *KV) Delete(container, tablePath, key string, opts ...RequestOption) (*common.Response, error) {
	return m.client.Do(container, DeleteObjectInput{Path: joinPath(tablePath, key)}, opts...)
}

// CreateSchema writes the schema object of the table at tablePath
func (m *KV) CreateSchema(container, tablePath, key string, fields []SchemaField, opts ...RequestOption) (*common.Response, error) {
	if fields == nil {
		fields = []SchemaField{}
	}
	body, err := serializer.EncodeJSONBody(map[string]any{
		"hashingBucketNum": 0,
		"key":              key,
		"fields":           fields,
	})
	if err != nil {
		return nil, err
	}
	return m.client.Do(container, PutObjectInput{Path: joinPath(tablePath, schemaFileName), Body: body}, opts...)
}
