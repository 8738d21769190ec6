// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"fmt"
	"strconv"
	"strings"
)

// statusReasons is the well-known status-code -> reason-phrase table.
// Consulted by the builder only when the caller hasn't set an explicit
// reason; an explicitly empty reason is still respected verbatim.
var statusReasons = map[int]string{
	100: "Continue", 101: "Switching Protocols", 102: "Processing",
	200: "OK", 201: "Created", 202: "Accepted", 204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently", 302: "Found", 304: "Not Modified",
	400: "Bad Request", 401: "Unauthorized", 403: "Forbidden", 404: "Not Found",
	405: "Method Not Allowed", 408: "Request Timeout", 409: "Conflict",
	413: "Entity Too Large", 414: "URI Too Long", 426: "Upgrade Required",
	500: "Internal Server Error", 501: "Not Implemented",
	503: "Service Unavailable", 505: "HTTP Version Not Supported",
}

// ReasonFor returns the standard reason phrase for code, or "" if unknown.
func ReasonFor(code int) string { return statusReasons[code] }

// Response is the immutable result of a ResponseBuilder.Build. Body, when
// non-nil, is a lazy chunk producer; BodyLen is the declared length, or -1
// if unknown, in which case the pipeline writes without a Content-Length
// and relies on connection close or the client's own framing expectations,
// since chunked encoding is out of scope.
type Response struct {
	Status                      int
	Reason                      string
	Headers                     []Header
	Body                        Producer[[]byte]
	BodyLen                     int64
	MustShutdownOutputAfterWrite bool
	MustCloseAfterWrite          bool
}

// IsInterim reports whether Status is in 100..199.
func (r *Response) IsInterim() bool { return r.Status >= 100 && r.Status <= 199 }

// ResponseBuilder is a persistent (copy-on-write) builder: every With*
// method returns a derived builder, never mutating the receiver.
type ResponseBuilder struct {
	status             int
	reason             string
	reasonSet          bool
	headers            []Header
	body               Producer[[]byte]
	bodyLen            int64 // -1 = unknown
	shutdownOutput     bool
	closeAfter         bool
}

// NewResponse starts a builder for status, with no body and no headers.
func NewResponse(status int) ResponseBuilder {
	return ResponseBuilder{status: status, bodyLen: -1}
}

func (b ResponseBuilder) clone() ResponseBuilder {
	c := b
	c.headers = append([]Header(nil), b.headers...)
	return c
}

// WithStatus returns a derived builder with a new status code.
func (b ResponseBuilder) WithStatus(status int) ResponseBuilder {
	c := b.clone()
	c.status = status
	return c
}

// WithReason returns a derived builder with an explicit reason phrase
// (possibly empty), overriding the standard-table lookup at Build time.
func (b ResponseBuilder) WithReason(reason string) ResponseBuilder {
	c := b.clone()
	c.reason = reason
	c.reasonSet = true
	return c
}

// WithHeader appends a header; headers are multi-valued.
func (b ResponseBuilder) WithHeader(name, value string) ResponseBuilder {
	c := b.clone()
	c.headers = append(c.headers, Header{Name: name, Value: value})
	return c
}

// WithoutHeader returns a derived builder with every occurrence of name
// removed.
func (b ResponseBuilder) WithoutHeader(name string) ResponseBuilder {
	c := b.clone()
	kept := c.headers[:0:0]
	for _, h := range c.headers {
		if !strings.EqualFold(h.Name, name) {
			kept = append(kept, h)
		}
	}
	c.headers = kept
	return c
}

// WithBody sets a lazy body producer of known length. The builder adds or
// replaces Content-Length at Build time.
func (b ResponseBuilder) WithBody(producer Producer[[]byte], length int64) ResponseBuilder {
	c := b.clone()
	c.body = producer
	c.bodyLen = length
	return c
}

// WithBodyBytes is a convenience for a single fixed []byte body.
func (b ResponseBuilder) WithBodyBytes(data []byte) ResponseBuilder {
	delivered := false
	producer := func() ([]byte, bool) {
		if delivered || len(data) == 0 {
			return nil, false
		}
		delivered = true
		return data, true
	}
	return b.WithBody(producer, int64(len(data)))
}

// WithUnknownLengthBody sets a lazy body producer whose total length isn't
// known in advance; any stale Content-Length is removed at Build time.
func (b ResponseBuilder) WithUnknownLengthBody(producer Producer[[]byte]) ResponseBuilder {
	c := b.clone()
	c.body = producer
	c.bodyLen = -1
	return c
}

// MustShutdownOutputAfterWrite marks the response as requiring the output
// half of the connection to be closed after it drains; adds
// "Connection: close".
func (b ResponseBuilder) MustShutdownOutputAfterWrite(shutdown bool) ResponseBuilder {
	c := b.clone()
	c.shutdownOutput = shutdown
	return c
}

// MustCloseAfterWrite marks the response as requiring the whole connection
// to close after it drains; adds "Connection: close".
func (b ResponseBuilder) MustCloseAfterWrite(close bool) ResponseBuilder {
	c := b.clone()
	c.closeAfter = close
	return c
}

// Build validates and returns the immutable Response, enforcing: at most
// one Content-Length; 1xx responses have an empty body and neither
// connection flag nor a Connection: close header.
func (b ResponseBuilder) Build() (*Response, error) {
	if countHeader(b.headers, "Content-Length") > 1 {
		return nil, fmt.Errorf("httpcore: response has more than one Content-Length header")
	}
	isInterim := b.status >= 100 && b.status <= 199
	if isInterim {
		if b.body != nil {
			return nil, NewError(IllegalBody)
		}
		if b.shutdownOutput || b.closeAfter {
			return nil, NewError(IllegalBody)
		}
		if v, ok := HeaderValue(b.headers, "Connection"); ok && strings.EqualFold(v, "close") {
			return nil, NewError(IllegalBody)
		}
	}

	headers := withoutHeaderName(b.headers, "Content-Length")
	if b.body != nil && b.bodyLen >= 0 {
		headers = append(headers, Header{Name: "Content-Length", Value: strconv.FormatInt(b.bodyLen, 10)})
	}

	needsClose := b.shutdownOutput || b.closeAfter
	headers = withoutHeaderName(headers, "Connection")
	if needsClose {
		headers = append(headers, Header{Name: "Connection", Value: "close"})
	}

	reason := b.reason
	if !b.reasonSet {
		reason = ReasonFor(b.status)
	}

	return &Response{
		Status:                       b.status,
		Reason:                       reason,
		Headers:                      headers,
		Body:                         b.body,
		BodyLen:                      b.bodyLen,
		MustShutdownOutputAfterWrite: b.shutdownOutput,
		MustCloseAfterWrite:          b.closeAfter,
	}, nil
}

func countHeader(headers []Header, name string) int {
	n := 0
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			n++
		}
	}
	return n
}

func withoutHeaderName(headers []Header, name string) []Header {
	out := make([]Header, 0, len(headers))
	for _, h := range headers {
		if !strings.EqualFold(h.Name, name) {
			out = append(out, h)
		}
	}
	return out
}
