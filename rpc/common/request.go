package common

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Encoded Request
// --------------------------------------------------------------------------

// EncodedRequest is an operation translated into wire form. It is immutable once
// encoded; transports build a fresh *http.Request from it for every (re)send.
type EncodedRequest struct {
	Kind   OpKind
	Method string
	// Path is the escaped-on-send url path, always starting with "/"
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
	// Output decodes a successful body into the typed output of Kind (may be nil)
	Output OutputDecoder
	// RaiseForStatus overrides the policy given to Receive unless it is RaiseDefault
	RaiseForStatus RaiseForStatus
}

// RequestURI returns the escaped path plus the encoded query
func (r *EncodedRequest) RequestURI() string {
	u := url.URL{Path: r.Path}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}
	return u.RequestURI()
}

// NewHTTPRequest builds an *http.Request for this request against base (scheme + host)
func (r *EncodedRequest) NewHTTPRequest(base *url.URL) (*http.Request, error) {
	target := *base
	target.Path = strings.TrimSuffix(base.Path, "/") + r.Path
	target.RawPath = ""
	target.RawQuery = ""
	if len(r.Query) > 0 {
		target.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequest(r.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", r.Kind, err)
	}

	for key, values := range r.Headers {
		req.Header[key] = slices.Clone(values)
	}
	return req, nil
}

// String returns a short description used in log lines
func (r *EncodedRequest) String() string {
	return fmt.Sprintf("%s %s %s (%d bytes)", r.Kind, r.Method, r.RequestURI(), len(r.Body))
}

// --------------------------------------------------------------------------
// Raise For Status Policy
// --------------------------------------------------------------------------

type raiseMode uint8

const (
	raiseModeDefault raiseMode = iota
	raiseModeNever
	raiseModeAlways
	raiseModeUnless
)

// RaiseForStatus decides whether a response status becomes an *HTTPStatusError.
// The zero value is RaiseDefault.
type RaiseForStatus struct {
	mode     raiseMode
	accepted []int
}

var (
	// RaiseDefault raises when the status is >= 300
	RaiseDefault = RaiseForStatus{mode: raiseModeDefault}
	// RaiseNever never raises
	RaiseNever = RaiseForStatus{mode: raiseModeNever}
	// RaiseAlways raises for every status, including 2xx
	RaiseAlways = RaiseForStatus{mode: raiseModeAlways}
)

// RaiseUnless raises unless the status is one of codes
func RaiseUnless(codes ...int) RaiseForStatus {
	return RaiseForStatus{mode: raiseModeUnless, accepted: slices.Clone(codes)}
}

// IsDefault reports whether this is the default policy
func (p RaiseForStatus) IsDefault() bool {
	return p.mode == raiseModeDefault
}

// Or returns p unless it is the default policy, in which case fallback is returned
func (p RaiseForStatus) Or(fallback RaiseForStatus) RaiseForStatus {
	if p.IsDefault() {
		return fallback
	}
	return p
}

// ShouldRaise reports whether status is rejected by the policy
func (p RaiseForStatus) ShouldRaise(status int) bool {
	switch p.mode {
	case raiseModeNever:
		return false
	case raiseModeAlways:
		return true
	case raiseModeUnless:
		return !slices.Contains(p.accepted, status)
	default:
		return status >= 300
	}
}

// String returns the name of the policy
func (p RaiseForStatus) String() string {
	switch p.mode {
	case raiseModeNever:
		return "never"
	case raiseModeAlways:
		return "always"
	case raiseModeUnless:
		codes := make([]string, len(p.accepted))
		for i, c := range p.accepted {
			codes[i] = strconv.Itoa(c)
		}
		return "unless(" + strings.Join(codes, ",") + ")"
	default:
		return "default"
	}
}

// ParseRaiseForStatus parses "default", "never", "always" or a comma separated list of
// accepted status codes
func ParseRaiseForStatus(s string) (RaiseForStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return RaiseDefault, nil
	case "never":
		return RaiseNever, nil
	case "always":
		return RaiseAlways, nil
	}

	var codes []int
	for _, part := range strings.Split(s, ",") {
		code, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || code < 100 || code > 999 {
			return RaiseDefault, fmt.Errorf("invalid raise-for-status policy %q", s)
		}
		codes = append(codes, code)
	}
	return RaiseUnless(codes...), nil
}
