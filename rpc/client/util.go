package client

import (
	"fmt"
	"github.com/ValentinKolb/dplane/rpc/common"
	"github.com/ValentinKolb/dplane/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
)

var (
	Logger = logger.GetLogger("client")
)

// invokeRequest is the helper used by all client operations to send a request and
// wait for its response. On a status rejection both the response and the error are
// returned.
func invokeRequest(req *common.EncodedRequest, transport transport.IClientTransport, raise common.RaiseForStatus) (*common.Response, error) {
	// Send the request
	inflight, err := transport.Send(req)
	if err != nil {
		return nil, err
	}

	// Wait for the response
	return transport.Receive(inflight, raise)
}

// OutputAs returns the typed output of resp. It fails if the body cannot be parsed
// or the output is not a T.
func OutputAs[T any](resp *common.Response) (T, error) {
	var zero T
	if resp == nil {
		return zero, fmt.Errorf("no response")
	}

	output, err := resp.Output()
	if err != nil {
		return zero, err
	}

	typed, ok := output.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected output type %T for %s %s, expected %T", output, resp.Method, resp.Path, zero)
	}
	return typed, nil
}

// joinPath joins path parts with a single slash and returns a path that starts
// with "/". Empty parts are skipped and a trailing slash of the last part is kept.
func joinPath(parts ...string) string {
	var segments []string
	trailing := false
	for _, part := range parts {
		if part == "" {
			continue
		}
		trailing = strings.HasSuffix(part, "/")
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}

	path := "/" + strings.Join(segments, "/")
	if trailing && len(segments) > 0 {
		path += "/"
	}
	return path
}

// ensureTrailingSlash marks a path as a directory
func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
