package httpcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestSplitsPathAndQuery(t *testing.T) {
	head := &Head{Method: "GET", Target: "/search?q=go+lang&tag=a&tag=b", VersionMajor: 1, VersionMinor: 1}
	req := NewRequest(head, nil, NewBodyReader(func() ([]byte, bool) { return nil, false }))

	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, []string{"go+lang"}, req.Query("q"))
	assert.Equal(t, []string{"a", "b"}, req.Query("tag"))
}

func TestRequestPathParamAccessors(t *testing.T) {
	head := &Head{Method: "GET", Target: "/users/a%2Fb", VersionMajor: 1, VersionMinor: 1}
	match := &Match{Params: []ParamBinding{{Name: "id", Raw: "a%2Fb", Decoded: "a/b"}}}
	req := NewRequest(head, match, NewBodyReader(func() ([]byte, bool) { return nil, false }))

	decoded, ok := req.PathParam("id")
	assert.True(t, ok)
	assert.Equal(t, "a/b", decoded)

	raw, ok := req.PathParamRaw("id")
	assert.True(t, ok)
	assert.Equal(t, "a%2Fb", raw)

	_, ok = req.PathParam("missing")
	assert.False(t, ok)
}

func TestRequestHasBody(t *testing.T) {
	head := &Head{Headers: []Header{{Name: "Content-Length", Value: "5"}}}
	req := NewRequest(head, nil, nil)
	assert.True(t, req.HasBody())

	head2 := &Head{Headers: []Header{{Name: "Content-Length", Value: "0"}}}
	req2 := NewRequest(head2, nil, nil)
	assert.False(t, req2.HasBody())

	req3 := NewRequest(&Head{}, nil, nil)
	assert.False(t, req3.HasBody())
}

func TestRequestKeepAlive(t *testing.T) {
	http11 := NewRequest(&Head{VersionMajor: 1, VersionMinor: 1}, nil, nil)
	assert.True(t, http11.KeepAlive())

	http11Close := NewRequest(&Head{VersionMajor: 1, VersionMinor: 1, Headers: []Header{{Name: "Connection", Value: "close"}}}, nil, nil)
	assert.False(t, http11Close.KeepAlive())

	http10 := NewRequest(&Head{VersionMajor: 1, VersionMinor: 0}, nil, nil)
	assert.False(t, http10.KeepAlive())

	http10KeepAlive := NewRequest(&Head{VersionMajor: 1, VersionMinor: 0, Headers: []Header{{Name: "Connection", Value: "keep-alive"}}}, nil, nil)
	assert.True(t, http10KeepAlive.KeepAlive())
}

func TestRequestContentType(t *testing.T) {
	req := NewRequest(&Head{Headers: []Header{{Name: "Content-Type", Value: "application/json"}}}, nil, nil)
	mt, ok := req.ContentType()
	assert.True(t, ok)
	assert.Equal(t, "application/json", mt.String())
}
