// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import "strings"

// QueryParam is one query-string key/value pair, kept in receipt order with
// both the raw and percent-decoded views, mirroring path parameters.
type QueryParam struct {
	Key          string
	RawValue     string
	DecodedValue string
}

// Request is the view the orchestrator builds after a successful head
// parse and before route lookup, so error handlers for a routing failure
// still get a Request; the orchestrator fills in PathParams once a route
// matches. It is exclusive to one exchange; Body is observable by at most
// one subscriber.
type Request struct {
	Method        string
	Target        string // unparsed request-target
	Path          string // decoded path component of Target
	RawQuery      string
	VersionMajor  int
	VersionMinor  int
	VersionString string
	Headers       []Header
	PathParams    []ParamBinding
	QueryParams   []QueryParam
	Body          *BodyReader
}

// NewRequest builds the immutable Request facade from a parsed Head, a
// route Match, and a body reader. The field shape (Method, Path, header
// getters) follows the usual HTTP/1 request-accessor pattern, adapted to
// plain struct fields instead of a byte-arena view over the wire bytes.
func NewRequest(head *Head, match *Match, body *BodyReader) *Request {
	path, rawQuery := splitTarget(head.Target)
	req := &Request{
		Method:        head.Method,
		Target:        head.Target,
		Path:          decodePathSegment(path),
		RawQuery:      rawQuery,
		VersionMajor:  head.VersionMajor,
		VersionMinor:  head.VersionMinor,
		VersionString: head.VersionString,
		Headers:       head.Headers,
		QueryParams:   parseQuery(rawQuery),
		Body:          body,
	}
	if match != nil {
		req.PathParams = match.Params
	}
	return req
}

func splitTarget(target string) (path, rawQuery string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

func parseQuery(rawQuery string) []QueryParam {
	if rawQuery == "" {
		return nil
	}
	var out []QueryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		out = append(out, QueryParam{
			Key:          decodePathSegment(key),
			RawValue:     value,
			DecodedValue: decodePathSegment(value),
		})
	}
	return out
}

// Header returns the first value for name (case-insensitive).
func (r *Request) Header(name string) (string, bool) { return HeaderValue(r.Headers, name) }

// HeaderAll returns every value for name (case-insensitive), receipt order.
func (r *Request) HeaderAll(name string) []string { return HeaderValues(r.Headers, name) }

// PathParam returns the decoded value of the named path parameter.
func (r *Request) PathParam(name string) (string, bool) {
	for _, p := range r.PathParams {
		if p.Name == name {
			return p.Decoded, true
		}
	}
	return "", false
}

// PathParamRaw returns the raw (still percent-encoded) value of the named
// path parameter, as received on the wire.
func (r *Request) PathParamRaw(name string) (string, bool) {
	for _, p := range r.PathParams {
		if p.Name == name {
			return p.Raw, true
		}
	}
	return "", false
}

// Query returns the decoded values for key, in receipt order.
func (r *Request) Query(key string) []string {
	var out []string
	for _, q := range r.QueryParams {
		if q.Key == key {
			out = append(out, q.DecodedValue)
		}
	}
	return out
}

// ContentType returns the parsed Content-Type header, if present and
// well-formed.
func (r *Request) ContentType() (MediaType, bool) {
	raw, ok := r.Header("Content-Type")
	if !ok {
		return MediaType{}, false
	}
	mt, err := ParseMediaType(raw)
	if err != nil {
		return MediaType{}, false
	}
	return mt, true
}

// HasBody reports whether the request declares a non-empty body via
// Content-Length (chunked transfer encoding is out of scope).
func (r *Request) HasBody() bool {
	cl, ok := r.Header("Content-Length")
	return ok && cl != "" && cl != "0"
}

// KeepAlive reports whether, based on the request's own version and
// headers, the connection should remain open after the response (the
// pipeline also folds in the response's own close flags).
func (r *Request) KeepAlive() bool {
	conn, _ := r.Header("Connection")
	if strings.EqualFold(conn, "close") {
		return false
	}
	if r.VersionMajor == 1 && r.VersionMinor == 0 {
		return strings.EqualFold(conn, "keep-alive")
	}
	return true
}
