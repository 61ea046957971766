package common

import (
	"errors"
	"github.com/ValentinKolb/dplane/rpc/serializer"
	"net/http"
	"sync"
)

// OutputDecoder turns a response body of the detected format into a typed output
type OutputDecoder func(format serializer.BodyFormat, body []byte) (any, error)

// --------------------------------------------------------------------------
// Response
// --------------------------------------------------------------------------

// Response is a completed wire response. Output is parsed lazily and at most once.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Method and Path of the request this is the response to
	Method string
	Path   string

	decoder   OutputDecoder
	once      sync.Once
	output    any
	outputErr error
}

// NewResponse creates a response for req
func NewResponse(req *EncodedRequest, statusCode int, headers http.Header, body []byte) *Response {
	resp := &Response{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
	}
	if req != nil {
		resp.Method = req.Method
		resp.Path = req.Path
		resp.decoder = req.Output
	}
	return resp
}

// Output returns the typed output of the response, parsing the body on first use.
// Requests without an output decoder yield (nil, nil). A body that is neither JSON
// nor XML, or that fails to decode, yields a *ProtocolError.
func (r *Response) Output() (any, error) {
	r.once.Do(func() {
		if r.decoder == nil {
			return
		}
		format := serializer.DetectFormat(r.Body)
		if format == serializer.FormatUnknown {
			r.outputErr = r.protocolError("body is neither json nor xml", nil)
			return
		}
		r.output, r.outputErr = r.decoder(format, r.Body)
		if r.outputErr != nil {
			r.output = nil
			r.outputErr = r.protocolError("failed to decode "+format.String()+" body", r.outputErr)
		}
	})
	return r.output, r.outputErr
}

// CheckStatus returns an *HTTPStatusError if the status is rejected by policy
func (r *Response) CheckStatus(policy RaiseForStatus) error {
	if !policy.ShouldRaise(r.StatusCode) {
		return nil
	}
	return &HTTPStatusError{
		StatusCode: r.StatusCode,
		Body:       r.Body,
		Method:     r.Method,
		Path:       r.Path,
	}
}

func (r *Response) protocolError(reason string, err error) *ProtocolError {
	var inner *ProtocolError
	if errors.As(err, &inner) {
		return inner
	}
	return &ProtocolError{
		StatusCode: r.StatusCode,
		Body:       r.Body,
		Headers:    r.Headers,
		Reason:     reason,
		Err:        err,
	}
}

// --------------------------------------------------------------------------
// Responses
// --------------------------------------------------------------------------

// Responses aggregates the responses of a multi request operation
type Responses struct {
	Items []*Response
	// Success is false once any response had a status other than 200
	Success bool
}

// NewResponses creates an empty, successful aggregate
func NewResponses() *Responses {
	return &Responses{Success: true}
}

// Add appends a response to the aggregate
func (r *Responses) Add(resp *Response) {
	r.Items = append(r.Items, resp)
	if resp.StatusCode != http.StatusOK {
		r.Success = false
	}
}

// CheckStatus returns the status error of the first failed response, if any
func (r *Responses) CheckStatus() error {
	if r.Success {
		return nil
	}
	for _, resp := range r.Items {
		if err := resp.CheckStatus(RaiseUnless(http.StatusOK)); err != nil {
			return err
		}
	}
	return nil
}
