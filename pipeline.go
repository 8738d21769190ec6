// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"bufio"
	"fmt"
	"sync"
)

// pipelineState is the response pipeline's state machine: a connection
// starts Idle, moves to StreamingInterim for the duration of each 1xx
// write and back to Idle afterwards, moves to StreamingFinal for the
// duration of the final response write, and then to Closed once that write
// completes — from which no further response can ever be accepted.
type pipelineState int

const (
	pipelineIdle pipelineState = iota
	pipelineStreamingInterim
	pipelineStreamingFinal
	pipelineClosed
)

// ResponseWriter is what a HandlerFunc writes responses through. Write
// blocks until the response (or as much of it as the wire framing allows)
// has been handed to the connection's output buffer; it never runs
// concurrently with another Write on the same connection, matching the
// single-writer-per-connection discipline every HTTP/1 server needs to
// avoid interleaving two responses' bytes on the wire.
type ResponseWriter interface {
	// Write submits resp. Interim (1xx) responses may be written any number
	// of times before the final response; exactly one non-interim response
	// may be written, after which the pipeline moves to Closed and every
	// subsequent Write fails with ResponseRejected.
	Write(resp *Response) error

	// Protocol reports the request's HTTP version, since an interim
	// response is meaningless to an HTTP/1.0 peer.
	Protocol() (major, minor int)
}

// Pipeline is the per-connection ResponseWriter implementation, serializing
// writes through a SerialExecutor the same way the connection serializes
// head parsing and handler dispatch, and detecting two failure modes the
// wire format can't catch on its own: a response whose body producer
// didn't emit as many bytes as its own Content-Length promised, and a
// HEAD or CONNECT response carrying a body at all, which the request
// method forbids regardless of what the handler's builder produced.
type Pipeline struct {
	w                     *bufio.Writer
	exec                  *SerialExecutor
	method                string
	versionMajor          int
	versionMinor          int
	ignoreRejectedInterim bool

	mu              sync.Mutex
	state           pipelineState
	finalWantsClose bool
	finalSent       bool
}

// NewPipeline wraps w (the connection's buffered output) for one exchange's
// request method and version. ignoreRejectedInterim mirrors
// Config.IgnoreRejectedInterim: when true, an interim response rejected
// solely because the peer is HTTP/1.0 is silently dropped instead of
// surfaced as an error.
func NewPipeline(w *bufio.Writer, method string, versionMajor, versionMinor int, ignoreRejectedInterim bool) *Pipeline {
	return &Pipeline{
		w:                     w,
		exec:                  NewSerialExecutor(false),
		method:                method,
		versionMajor:          versionMajor,
		versionMinor:          versionMinor,
		ignoreRejectedInterim: ignoreRejectedInterim,
		state:                 pipelineIdle,
	}
}

// Protocol implements ResponseWriter.
func (p *Pipeline) Protocol() (int, int) { return p.versionMajor, p.versionMinor }

// Write implements ResponseWriter.
func (p *Pipeline) Write(resp *Response) error {
	if resp.IsInterim() && p.versionMajor == 1 && p.versionMinor == 0 {
		if p.ignoreRejectedInterim {
			return nil
		}
		return &Error{Kind: ResponseRejected, RejectReason: ProtocolNotSupported}
	}

	var writeErr error
	done := make(chan struct{})
	p.exec.Submit(func() {
		writeErr = p.writeLocked(resp)
		close(done)
	})
	<-done
	return writeErr
}

func (p *Pipeline) currentState() pipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FinalWantsClose reports whether the final response written on this
// pipeline (if any) asked, via MustCloseAfterWrite or
// MustShutdownOutputAfterWrite, for the connection to close afterwards.
func (p *Pipeline) FinalWantsClose() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalWantsClose
}

// IsClosed reports whether a final response has finished writing, or a
// write on this pipeline failed part-way.
func (p *Pipeline) IsClosed() bool { return p.currentState() == pipelineClosed }

func (p *Pipeline) setState(s pipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// writeLocked runs inside the pipeline's serial executor, so it never
// overlaps with another write on the same connection.
func (p *Pipeline) writeLocked(resp *Response) error {
	p.mu.Lock()
	state, finalSent := p.state, p.finalSent
	p.mu.Unlock()
	switch {
	case state == pipelineStreamingFinal, state == pipelineClosed && finalSent:
		return &Error{Kind: ResponseRejected, RejectReason: AlreadyFinal}
	case state == pipelineClosed:
		return &Error{Kind: ResponseRejected, RejectReason: ChannelClosed}
	}

	if !resp.IsInterim() && resp.Body != nil && (p.method == "HEAD" || p.method == "CONNECT") {
		return &Error{Kind: IllegalBody, HandlerFault: true}
	}

	if resp.IsInterim() {
		p.setState(pipelineStreamingInterim)
	} else {
		p.setState(pipelineStreamingFinal)
		if resp.MustCloseAfterWrite || resp.MustShutdownOutputAfterWrite {
			p.mu.Lock()
			p.finalWantsClose = true
			p.mu.Unlock()
		}
	}

	if err := p.writeHead(resp); err != nil {
		p.setState(pipelineClosed)
		return err
	}
	if err := p.writeBody(resp); err != nil {
		p.setState(pipelineClosed)
		return err
	}

	if resp.IsInterim() {
		if err := p.w.Flush(); err != nil {
			p.setState(pipelineClosed)
			return err
		}
		p.setState(pipelineIdle)
		return nil
	}

	if err := p.w.Flush(); err != nil {
		p.setState(pipelineClosed)
		return err
	}
	p.mu.Lock()
	p.state = pipelineClosed
	p.finalSent = true
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) writeHead(resp *Response) error {
	reason := resp.Reason
	if reason == "" {
		if _, err := fmt.Fprintf(p.w, "HTTP/1.1 %d\r\n", resp.Status); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(p.w, "HTTP/1.1 %d %s\r\n", resp.Status, reason); err != nil {
		return err
	}
	for _, h := range resp.Headers {
		if _, err := fmt.Fprintf(p.w, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}
	_, err := p.w.WriteString("\r\n")
	return err
}

// writeBody pulls resp.Body through the same Transfer/demand machinery a
// request body is read with, rather than calling the producer in a bare
// loop: the pipeline asks for everything up front (IncreaseDemand(Unbounded))
// since it writes synchronously and has no reason to throttle itself, but
// routing through Transfer keeps response and request bodies sharing one
// implementation of "drive a lazy chunk producer to completion" instead of
// two. It fails the write if the number of bytes actually produced
// disagrees with a declared Content-Length (BodyLen >= 0) in either
// direction: the connection's framing has already promised the peer an
// exact byte count by this point, so a short or long body can no longer be
// fixed up, only reported as a handler fault.
func (p *Pipeline) writeBody(resp *Response) error {
	if resp.Body == nil {
		return nil
	}
	var written int64
	var writeErr error
	produce := func() ([]byte, bool) {
		if writeErr != nil {
			return nil, false
		}
		return resp.Body()
	}
	consume := func(chunk []byte) {
		if _, err := p.w.Write(chunk); err != nil {
			writeErr = err
			return
		}
		written += int64(len(chunk))
		if resp.BodyLen >= 0 && written > resp.BodyLen {
			writeErr = &Error{Kind: IllegalBody, HandlerFault: true}
		}
	}
	NewTransfer(produce, consume, nil).IncreaseDemand(Unbounded)
	if writeErr != nil {
		return writeErr
	}
	if resp.BodyLen >= 0 && written != resp.BodyLen {
		return &Error{Kind: IllegalBody, HandlerFault: true}
	}
	return nil
}
