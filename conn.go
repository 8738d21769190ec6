// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// poolConn is the server-side connection pool: a fresh net.Conn is cheap,
// but the bufio.Reader/Writer pair wrapping it isn't worth reallocating on
// every single accepted connection.
var poolConn sync.Pool

func getConn(id int64, server *Server, gate *Gate, netConn net.Conn) *conn {
	var c *conn
	if x := poolConn.Get(); x == nil {
		c = new(conn)
	} else {
		c = x.(*conn)
	}
	c.onGet(id, server, gate, netConn)
	return c
}

func putConn(c *conn) {
	c.onPut()
	poolConn.Put(c)
}

// conn is one accepted connection's HTTP/1.x serving loop. Pipelining is
// supported: Serve keeps reading and answering request heads off the same
// net.Conn until either side asks to stop, each exchange strictly
// finishing (including its body) before the next one's head is parsed,
// simply by never starting exchange N+1 until exchange N's Run returns.
type conn struct {
	id      int64
	server  *Server
	gate    *Gate
	netConn net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	logger  *Logger

	persistent bool
}

func (c *conn) onGet(id int64, server *Server, gate *Gate, netConn net.Conn) {
	c.id = id
	c.server = server
	c.gate = gate
	c.netConn = netConn
	if c.reader == nil {
		c.reader = bufio.NewReader(netConn)
		c.writer = bufio.NewWriter(netConn)
	} else {
		c.reader.Reset(netConn)
		c.writer.Reset(netConn)
	}
	c.logger = server.logger.With(zap.Int64("conn_id", id))
	c.persistent = true
}

func (c *conn) onPut() {
	c.server = nil
	c.gate = nil
	c.netConn = nil
	c.logger = nil
}

// serve is the connection's runner goroutine body.
func (c *conn) serve() {
	defer putConn(c)
	defer c.netConn.Close()

	headParser := NewHeadParser(c.reader, c.server.config.MaxRequestHeadSize)
	for c.persistent {
		if d := c.server.config.HeadTimeout; d > 0 {
			c.netConn.SetReadDeadline(time.Now().Add(d))
		}
		head, err := headParser.Parse()
		if err != nil {
			c.handleHeadFailure(err)
			return
		}
		c.netConn.SetReadDeadline(time.Time{})

		pipeline := NewPipeline(c.writer, head.Method, head.VersionMajor, head.VersionMinor, c.server.config.IgnoreRejectedInterim)
		exchange := NewExchange(head, c.newBodyReader(head), c.server.registry, pipeline, c.server.recovery, c.server.pool, c.logger, c.server.config.RejectHTTP10)
		closeConn := exchange.Run()
		if err := c.writer.Flush(); err != nil {
			return
		}
		if closeConn {
			c.persistent = false
		}
	}
}

// newBodyReader builds the BodyReader for head's declared body, framed
// purely by Content-Length (chunked transfer encoding is out of scope). A
// request with no Content-Length, or Content-Length 0, produces an
// immediately-exhausted body. A read that fails before the declared length
// is reached is recorded on the BodyReader via SetDoneErr, rather than
// being reported as an ordinary end of body: as BodyTimeout if the read
// deadline expired, as ClientAborted for any other failure, a clean EOF
// included.
func (c *conn) newBodyReader(head *Head) *BodyReader {
	raw, ok := HeaderValue(head.Headers, "Content-Length")
	remaining, err := strconv.ParseInt(raw, 10, 64)
	if !ok || err != nil || remaining <= 0 {
		return NewBodyReader(func() ([]byte, bool) { return nil, false })
	}
	const maxChunk = 64 * 1024
	var body *BodyReader
	produce := func() ([]byte, bool) {
		if remaining <= 0 {
			return nil, false
		}
		if d := c.server.config.BodyTimeout; d > 0 {
			c.netConn.SetReadDeadline(time.Now().Add(d))
		}
		want := remaining
		if want > maxChunk {
			want = maxChunk
		}
		chunk := make([]byte, want)
		n, rerr := io.ReadFull(c.reader, chunk)
		remaining -= int64(n)
		if n == 0 && rerr != nil {
			remaining = 0
			// remaining was still > 0, so this read failing at all (clean EOF
			// included) means the body ended before its declared length.
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				body.SetDoneErr(NewError(BodyTimeout))
			} else {
				body.SetDoneErr(NewError(ClientAborted))
			}
			return nil, false
		}
		return chunk[:n], true
	}
	body = NewBodyReader(produce)
	return body
}

// handleHeadFailure runs a head-parse failure through recovery directly,
// since no Exchange exists yet to do it: HeadTooLarge, HeadParse,
// VersionParse, BadHeader, and HeadTimeout all reach here. EndOfStream
// (the peer closed, or simply isn't sending anything more) gets no
// response at all — there's no one left to write one to.
func (c *conn) handleHeadFailure(err error) {
	if unwrapCause(err).Kind == EndOfStream {
		return
	}
	pipeline := NewPipeline(c.writer, "", 1, 1, c.server.config.IgnoreRejectedInterim)
	outcome := c.server.recovery.Recover(nil, err)
	if outcome.Response != nil {
		if werr := pipeline.Write(outcome.Response); werr != nil {
			c.logger.Warn("failed writing head-failure response", zap.Error(werr))
			return
		}
		c.writer.Flush()
	}
}
