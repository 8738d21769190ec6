// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Exchange drives one request/response cycle: version validation, request
// assembly, routing, dispatching, handler invocation on the worker pool,
// and — on any failure along the way — recovery. One Exchange is used
// once; a persistent connection (conn.go) constructs a fresh Exchange per
// pipelined request.
type Exchange struct {
	head     *Head
	body     *BodyReader // the connection's body source for this request
	registry *Registry
	pipeline *Pipeline
	recovery *RecoveryChain
	pool     *WorkerPool
	logger   *Logger

	rejectHTTP10 bool
}

// NewExchange assembles the orchestrator for one request head, wiring it
// to the connection's route registry, response pipeline, recovery chain,
// worker pool, and logger.
func NewExchange(head *Head, body *BodyReader, registry *Registry, pipeline *Pipeline, recovery *RecoveryChain, pool *WorkerPool, logger *Logger, rejectHTTP10 bool) *Exchange {
	if logger == nil {
		logger = NopLogger()
	}
	return &Exchange{
		head:         head,
		body:         body,
		registry:     registry,
		pipeline:     pipeline,
		recovery:     recovery,
		pool:         pool,
		logger:       logger,
		rejectHTTP10: rejectHTTP10,
	}
}

// Run executes the whole exchange and reports whether the connection
// should close afterwards — because the exchange's own outcome demanded
// it, because the final response asked for it, or because the request
// itself declined keep-alive.
func (x *Exchange) Run() bool {
	outcome := x.drive()
	if outcome.Close {
		return true
	}
	if x.pipeline.FinalWantsClose() {
		return true
	}
	return !x.headWantsKeepAlive()
}

func (x *Exchange) drive() *Outcome {
	if err := x.validateVersion(); err != nil {
		return x.finish(nil, err)
	}
	if err := x.precheckIllegalBody(); err != nil {
		return x.finish(nil, err)
	}

	req := NewRequest(x.head, nil, x.body)

	rawPath, _ := splitTarget(x.head.Target)
	match, err := x.registry.Lookup(rawPath)
	if err != nil {
		x.body.Discard()
		return x.finish(req, err)
	}
	req.PathParams = match.Params

	contentType, _ := req.Header("Content-Type")
	accept, _ := req.Header("Accept")
	handler, err := SelectHandler(match.Route.Handlers(), req.Method, contentType, accept)
	if err != nil {
		x.body.Discard()
		return x.finish(req, err)
	}

	handlerErr := x.dispatch(handler, req)
	x.body.Discard() // drain whatever the handler itself never subscribed to
	if handlerErr == nil {
		// Discard() drains synchronously when nobody subscribed, so the body
		// has already finished by this point in that case; a timeout or
		// client-abort error recorded on it takes priority over "completed
		// cleanly". If a handler did subscribe and left the body unfinished,
		// DoneErr reports nothing yet and the handler's own result stands.
		handlerErr = x.body.DoneErr()
	}
	return x.finish(req, handlerErr)
}

// validateVersion checks the request line's HTTP version: a pre-HTTP/1.0
// request line (VersionMajor < 1) or, when Config.RejectHTTP10 is set, an
// HTTP/1.0 request, is HttpVersionTooOld; anything past HTTP/1.x is
// HttpVersionTooNew, since this parser never speaks HTTP/2 or HTTP/3.
func (x *Exchange) validateVersion() error {
	switch {
	case x.head.VersionMajor < 1:
		return &Error{Kind: HttpVersionTooOld, Upgrade: "HTTP/1.1"}
	case x.head.VersionMajor == 1 && x.head.VersionMinor == 0 && x.rejectHTTP10:
		return &Error{Kind: HttpVersionTooOld, Upgrade: "HTTP/1.1"}
	case x.head.VersionMajor > 1:
		return NewError(HttpVersionTooNew)
	}
	return nil
}

// precheckIllegalBody catches the body/method combinations that are
// illegal before a handler is ever looked up: TRACE, HEAD, and CONNECT
// requests declaring a body. The mirror-image case on the way out — a
// HEAD or CONNECT response carrying a body — is caught later, by the
// pipeline at write time (pipeline.go), since only the handler's actual
// response can be checked, not the request. A 1xx response declaring a
// body or a close flag is rejected separately, by ResponseBuilder.Build
// (response.go).
func (x *Exchange) precheckIllegalBody() error {
	switch x.head.Method {
	case "TRACE", "HEAD", "CONNECT":
		if cl, ok := HeaderValue(x.head.Headers, "Content-Length"); ok && cl != "" && cl != "0" {
			return NewError(IllegalBody)
		}
	}
	return nil
}

// dispatch runs h on the worker pool and blocks until it returns,
// recovering a panic into an Internal error rather than letting it take
// down the worker goroutine.
func (x *Exchange) dispatch(h *Handler, req *Request) error {
	var result error
	done := make(chan struct{})
	x.pool.Submit(func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				result = Wrap(Internal, fmt.Errorf("handler panic: %v", r))
			}
		}()
		result = h.Func(req, x.pipeline)
	})
	<-done
	return result
}

// finish turns err (nil meaning "the exchange completed cleanly") into an
// Outcome. If a final response already went out before err arrived,
// nothing further can be written, no matter what err says; the orchestrator
// can only log and close.
func (x *Exchange) finish(req *Request, err error) *Outcome {
	if err == nil {
		return &Outcome{}
	}
	if x.pipeline.IsClosed() {
		x.logger.Warn("exchange failed after its final response was already sent", zap.Error(err))
		return &Outcome{Close: true}
	}
	outcome := x.recovery.Recover(req, err)
	if outcome.Response != nil {
		if werr := x.pipeline.Write(outcome.Response); werr != nil {
			x.logger.Warn("failed writing the recovered response", zap.Error(werr))
			outcome.Close = true
		}
	}
	return outcome
}

// headWantsKeepAlive mirrors Request.KeepAlive before a Request necessarily
// exists (a version-validation failure never builds one).
func (x *Exchange) headWantsKeepAlive() bool {
	conn, _ := HeaderValue(x.head.Headers, "Connection")
	if strings.EqualFold(conn, "close") {
		return false
	}
	if x.head.VersionMajor == 1 && x.head.VersionMinor == 0 {
		return strings.EqualFold(conn, "keep-alive")
	}
	return true
}
