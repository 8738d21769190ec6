package httpcore

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool() *WorkerPool { return InitPool(2) }

func runExchange(t *testing.T, head *Head, registry *Registry, rejectHTTP10 bool) (closeConn bool, out string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := bufio.NewWriter(buf)
	pipeline := NewPipeline(w, head.Method, head.VersionMajor, head.VersionMinor, true)
	recovery := NewRecoveryChain(nil, 5)
	emptyBody := NewBodyReader(func() ([]byte, bool) { return nil, false })
	exch := NewExchange(head, emptyBody, registry, pipeline, recovery, testPool(), nil, rejectHTTP10)
	closeConn = exch.Run()
	require.NoError(t, w.Flush())
	return closeConn, buf.String()
}

func TestExchangeGreetingScenario(t *testing.T) {
	reg := NewRegistry()
	route, err := ParseRoute("/hello")
	require.NoError(t, err)
	require.NoError(t, route.AddHandler(&Handler{
		Method:   "GET",
		Produces: []string{"text/plain"},
		Func: func(req *Request, rw ResponseWriter) error {
			resp, err := NewResponse(200).
				WithHeader("Content-Type", "text/plain; charset=utf-8").
				WithBodyBytes([]byte("Hello World!")).
				Build()
			if err != nil {
				return err
			}
			return rw.Write(resp)
		},
	}))
	require.NoError(t, reg.Insert(route))

	head := &Head{Method: "GET", Target: "/hello", VersionMajor: 1, VersionMinor: 1}
	closeConn, out := runExchange(t, head, reg, false)

	assert.False(t, closeConn)
	assert.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, out, "Content-Length: 12\r\n")
	assert.Contains(t, out, "Hello World!")
}

func TestExchangePathParameterScenario(t *testing.T) {
	reg := NewRegistry()
	route, err := ParseRoute("/greet/:name")
	require.NoError(t, err)
	require.NoError(t, route.AddHandler(&Handler{
		Method:   "GET",
		Produces: []string{"text/plain"},
		Func: func(req *Request, rw ResponseWriter) error {
			name, _ := req.PathParam("name")
			resp, err := NewResponse(200).WithBodyBytes([]byte("hi " + name)).Build()
			if err != nil {
				return err
			}
			return rw.Write(resp)
		},
	}))
	require.NoError(t, reg.Insert(route))

	head := &Head{Method: "GET", Target: "/greet/ada", VersionMajor: 1, VersionMinor: 1}
	_, out := runExchange(t, head, reg, false)
	assert.Contains(t, out, "hi ada")
}

func TestExchangeNoRouteFoundReturns404(t *testing.T) {
	reg := NewRegistry()
	head := &Head{Method: "GET", Target: "/nowhere", VersionMajor: 1, VersionMinor: 1}
	_, out := runExchange(t, head, reg, false)
	assert.Contains(t, out, "HTTP/1.1 404")
}

func TestExchangeRetryOnErrorViaInterceptor(t *testing.T) {
	reg := NewRegistry()
	head := &Head{Method: "GET", Target: "/missing", VersionMajor: 1, VersionMinor: 1}

	buf := &bytes.Buffer{}
	w := bufio.NewWriter(buf)
	pipeline := NewPipeline(w, head.Method, 1, 1, true)

	attempts := 0
	interceptor := func(req *Request, err *Error) (*Response, error) {
		attempts++
		if attempts == 1 {
			return nil, NewError(Internal)
		}
		resp, _ := NewResponse(503).Build()
		return resp, nil
	}
	recovery := NewRecoveryChain(nil, 5, interceptor)
	emptyBody := NewBodyReader(func() ([]byte, bool) { return nil, false })
	exch := NewExchange(head, emptyBody, reg, pipeline, recovery, testPool(), nil, false)
	exch.Run()
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, attempts)
	assert.Contains(t, buf.String(), "HTTP/1.1 503")
}

func TestExchangeUpgradeRequiredForRejectedHTTP10(t *testing.T) {
	reg := NewRegistry()
	head := &Head{Method: "GET", Target: "/hello", VersionMajor: 1, VersionMinor: 0}
	closeConn, out := runExchange(t, head, reg, true)

	assert.True(t, closeConn)
	assert.Contains(t, out, "HTTP/1.1 426")
	assert.Contains(t, out, "Upgrade: HTTP/1.1\r\n")
}

func TestExchangeHeadTooLargeIsHandledUpstreamOfExchange(t *testing.T) {
	// HeadTooLarge is raised by HeadParser before an Exchange exists
	// (see conn.go's handleHeadFailure); confirmed via the recovery table
	// directly here.
	c := NewRecoveryChain(nil, 5)
	outcome := c.Recover(nil, NewError(HeadTooLarge))
	require.NotNil(t, outcome.Response)
	assert.Equal(t, 413, outcome.Response.Status)
}

func TestExchangeInterimResponsesPrecedeFinal(t *testing.T) {
	reg := NewRegistry()
	route, err := ParseRoute("/upload")
	require.NoError(t, err)
	require.NoError(t, route.AddHandler(&Handler{
		Method: "POST",
		Func: func(req *Request, rw ResponseWriter) error {
			interim, _ := NewResponse(100).Build()
			if err := rw.Write(interim); err != nil {
				return err
			}
			final, _ := NewResponse(200).Build()
			return rw.Write(final)
		},
	}))
	require.NoError(t, reg.Insert(route))

	head := &Head{Method: "POST", Target: "/upload", VersionMajor: 1, VersionMinor: 1}
	_, out := runExchange(t, head, reg, false)

	assert.Less(t, indexOf(out, "100 Continue"), indexOf(out, "200 OK"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
