package httpcore

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The process-wide worker pool (pool.go) is intentionally started
		// once and never torn down; its goroutines are expected to still
		// be running when the test binary exits.
		goleak.IgnoreTopFunction("github.com/hexserve/httpcore.(*WorkerPool).run"),
	)
}

func TestServerServesGreetingOverRealSocket(t *testing.T) {
	server := NewServer(DefaultConfig(), nil, nil, nil)
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
	require.NoError(t, server.Registry().Insert(route))

	gate, err := server.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer server.StopNow()

	conn, err := net.DialTimeout("tcp", gate.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK\r\n", statusLine)
}

func TestServerStopStopsAcceptingNewConnections(t *testing.T) {
	server := NewServer(DefaultConfig(), nil, nil, nil)
	gate, err := server.Start("127.0.0.1:0")
	require.NoError(t, err)

	server.Stop()

	_, err = net.DialTimeout("tcp", gate.Addr().String(), time.Second)
	require.Error(t, err)
}
