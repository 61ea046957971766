package client

// ItemsCursor iterates the items of a table page by page. It is created by
// KV.NewCursor and owned by one goroutine.
type ItemsCursor struct {
	client    *Client
	container string
	input     GetItemsInput
	opts      []RequestOption

	// limit bounds the total number of returned items (nil = unbounded)
	limit    *int
	returned int

	items  []Item
	index  int
	output *GetItemsOutput
}

func newItemsCursor(client *Client, container string, input GetItemsInput, opts []RequestOption) *ItemsCursor {
	return &ItemsCursor{
		client:    client,
		container: container,
		input:     input,
		opts:      opts,
		limit:     input.Limit,
	}
}

// Next returns the next item. The bool is false once the scan is exhausted or the
// limit is reached; no request is made in that case.
func (c *ItemsCursor) Next() (Item, bool, error) {
	for {
		if c.limit != nil && c.returned >= *c.limit {
			return nil, false, nil
		}

		if c.index < len(c.items) {
			item := c.items[c.index]
			c.index++
			c.returned++
			return item, true, nil
		}

		// the previous page was the last one or empty
		if c.output != nil && (c.output.Last || len(c.output.Items) == 0) {
			return nil, false, nil
		}

		input := c.input
		if c.output != nil {
			input.Marker = c.output.NextMarker
		}
		if c.limit != nil {
			input.Limit = Int(*c.limit - c.returned)
		}

		output, err := c.client.KV.Scan(c.container, input, c.opts...)
		if err != nil {
			return nil, false, err
		}

		c.output = output
		c.items = output.Items
		c.index = 0
	}
}

// All drains the cursor
func (c *ItemsCursor) All() ([]Item, error) {
	var items []Item
	for {
		item, ok, err := c.Next()
		if err != nil {
			return items, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}

// Output returns the output of the last fetched page (nil before the first fetch)
func (c *ItemsCursor) Output() *GetItemsOutput {
	return c.output
}
