package client

import (
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
)

// Batch pipelines encoded requests over all connections of a transport. Responses
// are returned in submission order. A batch is owned by one goroutine, batches of
// the same client wait one after another.
type Batch struct {
	client    *Client
	transport transport.IClientTransport

	queued   []*common.EncodedRequest
	inflight []*transport.InFlightRequest
}

// Enqueue appends an encoded request
func (b *Batch) Enqueue(req *common.EncodedRequest) {
	b.queued = append(b.queued, req)
}

// Add encodes input and appends it
func (b *Batch) Add(container string, input Input, opts ...RequestOption) error {
	req, err := b.client.Encode(container, input, opts...)
	if err != nil {
		return err
	}
	b.Enqueue(req)
	return nil
}

// Len returns the number of requests that were not waited for yet
func (b *Batch) Len() int {
	return len(b.queued) + len(b.inflight)
}

// Wait sends all queued requests, keeping up to MaxConnections in flight, and
// returns the responses in submission order. On any error, including a status
// rejection, the remaining work is dropped, the transport is restarted and the
// error is returned without partial results.
func (b *Batch) Wait(raise common.RaiseForStatus) ([]*common.Response, error) {
	b.client.batchMu.Lock()
	defer b.client.batchMu.Unlock()

	responses, err := b.wait(raise)
	if err != nil {
		dropped := b.Len()
		b.queued = nil
		b.inflight = nil

		Logger.Warningf("Batch failed, dropping %d requests and restarting transport: %v", dropped, err)
		if restartErr := b.transport.Restart(); restartErr != nil {
			Logger.Errorf("Failed to restart transport after batch failure: %v", restartErr)
		}
		return nil, err
	}
	return responses, nil
}

func (b *Batch) wait(raise common.RaiseForStatus) ([]*common.Response, error) {
	responses := make([]*common.Response, 0, b.Len())
	maxInFlight := max(b.transport.MaxConnections(), 1)

	// fill the pipeline
	for len(b.queued) > 0 && len(b.inflight) < maxInFlight {
		if err := b.sendNext(); err != nil {
			return nil, err
		}
	}

	// always wait for the oldest request and refill after each response
	for len(b.inflight) > 0 {
		inflight := b.inflight[0]
		b.inflight[0] = nil
		b.inflight = b.inflight[1:]

		resp, err := b.transport.Receive(inflight, raise)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)

		if len(b.queued) > 0 {
			if err := b.sendNext(); err != nil {
				return nil, err
			}
		}
	}

	return responses, nil
}

func (b *Batch) sendNext() error {
	req := b.queued[0]
	b.queued[0] = nil
	b.queued = b.queued[1:]

	inflight, err := b.transport.Send(req)
	if err != nil {
		return err
	}
	b.inflight = append(b.inflight, inflight)
	return nil
}
