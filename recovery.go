// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import "go.uber.org/zap"

// Interceptor is a user-supplied error handler tried, in registration
// order, before the default translation table. Returning (nil, nil)
// declines, passing err to the next interceptor unchanged. Returning a
// non-nil Response handles err: the chain stops and that response is sent.
//
// An interceptor can also decline by returning the exact same *Error it
// was given: that's treated the same as (nil, nil), advancing to the next
// interceptor without touching the attempt count, which lets an
// interceptor inspect err and pass it along unmodified without needing to
// special-case "no opinion" as a separate return shape. Returning a
// genuinely different error instance replaces err and restarts the chain
// from its first interceptor (up to RecoveryChain's attempt cap), with the
// displaced error folded in as a suppressed cause.
type Interceptor func(req *Request, err *Error) (*Response, error)

// Outcome is what the orchestrator does once recovery settles: send
// Response if non-nil, then, if Close is set, shut the connection down
// regardless of what Response's own flags said (some failures, like a
// response already half-written, leave no well-formed response to send at
// all).
type Outcome struct {
	Response *Response
	Close    bool
}

// RecoveryChain is the ordered error handler chain: custom Interceptors
// first, the built-in default translation table last. It never fails to
// produce an Outcome — the default table's final branch (500) is
// exhaustive.
type RecoveryChain struct {
	interceptors []Interceptor
	maxAttempts  int
	logger       *Logger
}

// NewRecoveryChain builds a chain with maxAttempts (minimum effectively 1)
// and the given interceptors, tried in order on every attempt.
func NewRecoveryChain(logger *Logger, maxAttempts int, interceptors ...Interceptor) *RecoveryChain {
	if logger == nil {
		logger = NopLogger()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RecoveryChain{interceptors: interceptors, maxAttempts: maxAttempts, logger: logger}
}

// Recover turns cause into an Outcome. cause may be any error; it is
// unwrapped to the *Error the rest of the chain dispatches on via
// unwrapCause.
func (c *RecoveryChain) Recover(req *Request, cause error) *Outcome {
	current := unwrapCause(cause)
	var suppressed error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		resp, nextErr := c.tryInterceptors(req, current)
		if resp != nil {
			return &Outcome{Response: resp}
		}
		if nextErr == nil {
			return c.defaultTranslate(current, suppressed)
		}
		suppressed = appendSuppressed(current, suppressed)
		current = unwrapCause(nextErr)
	}
	// Attempt cap exhausted: the peer still needs a deterministic response,
	// so fall through to the default table for whatever error we ended on.
	return c.defaultTranslate(current, suppressed)
}

// tryInterceptors runs the chain once against err. An interceptor that
// returns the exact same *Error instance it was handed is opting out, not
// replacing the error, so the loop just moves on to the next interceptor
// with err unchanged; only a genuinely different returned error instance
// is handed back to Recover to restart the cycle.
func (c *RecoveryChain) tryInterceptors(req *Request, err *Error) (resp *Response, nextErr error) {
	for _, ic := range c.interceptors {
		resp, icErr := ic(req, err)
		if resp != nil {
			return resp, nil
		}
		if icErr == nil {
			continue
		}
		if unwrapCause(icErr) == err {
			continue
		}
		return nil, icErr
	}
	return nil, nil
}

// defaultTranslate is the built-in table consulted once no Interceptor
// claims the error.
func (c *RecoveryChain) defaultTranslate(e *Error, suppressed error) *Outcome {
	final := appendSuppressed(e, suppressed)
	switch e.Kind {
	case HeadParse, VersionParse, BadHeader:
		return &Outcome{Response: mustBuildResponse(NewResponse(400).MustCloseAfterWrite(true))}

	case HttpVersionTooOld:
		b := NewResponse(426).MustCloseAfterWrite(true)
		if e.Upgrade != "" {
			b = b.WithHeader("Upgrade", e.Upgrade)
		}
		return &Outcome{Response: mustBuildResponse(b)}

	case HttpVersionTooNew:
		return &Outcome{Response: mustBuildResponse(NewResponse(505).MustCloseAfterWrite(true))}

	case NoRouteFound:
		c.logger.Info("no route matched request", zap.Error(final))
		return &Outcome{Response: mustBuildResponse(NewResponse(404))}

	case HeadTooLarge:
		c.logger.Warn("request head exceeded the configured size limit", zap.Error(final))
		return &Outcome{Response: mustBuildResponse(NewResponse(413).MustCloseAfterWrite(true))}

	case NoHandlerFound, AmbiguousHandler:
		c.logger.Warn("route matched but no handler could be resolved", zap.Error(final))
		return &Outcome{Response: mustBuildResponse(NewResponse(501))}

	case MediaTypeParse, IllegalBody:
		if e.HandlerFault {
			c.logger.Error("handler produced an illegal response", zap.Error(final))
			return &Outcome{Response: mustBuildResponse(NewResponse(500).MustCloseAfterWrite(true)), Close: true}
		}
		return &Outcome{Response: mustBuildResponse(NewResponse(400).MustCloseAfterWrite(true))}

	case EndOfStream:
		return &Outcome{Close: true}

	case ResponseRejected:
		return c.translateRejected(e, final)

	case HeadTimeout, BodyTimeout:
		return &Outcome{Response: mustBuildResponse(NewResponse(408).MustCloseAfterWrite(true))}

	case ResponseTimeout:
		c.logger.Error("response write timed out", zap.Error(final))
		return &Outcome{Response: mustBuildResponse(NewResponse(503).MustCloseAfterWrite(true)), Close: true}

	default:
		c.logger.Error("unclassified exchange failure", zap.Error(final))
		return &Outcome{Response: mustBuildResponse(NewResponse(500).MustCloseAfterWrite(true))}
	}
}

// translateRejected handles the ResponseRejected kind's three reasons.
// PROTOCOL_NOT_SUPPORTED only reaches here when the caller chose
// not to ignore a rejected interim response (Config.IgnoreRejectedInterim
// false); the final response is still pending, so nothing needs sending
// and the connection stays open. The other two reasons mean a final
// response (or the channel itself) is already gone, so nothing further can
// be sent and the connection is closed.
func (c *RecoveryChain) translateRejected(e *Error, final error) *Outcome {
	if e.RejectReason == ProtocolNotSupported {
		return &Outcome{}
	}
	c.logger.Warn("response rejected", zap.Error(final))
	return &Outcome{Close: true}
}

// mustBuildResponse builds b, panicking on failure. Every call site above
// passes a fixed, hand-checked combination of status/flags that always
// satisfies Build's invariants, so a failure here would mean this table
// itself is broken, not anything about the exchange being recovered.
func mustBuildResponse(b ResponseBuilder) *Response {
	resp, err := b.Build()
	if err != nil {
		panic(err)
	}
	return resp
}
