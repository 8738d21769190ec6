// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Kind classifies the failures the exchange orchestrator recognizes and
// routes through the error handler chain.
type Kind int

const (
	Internal Kind = iota
	HeadParse
	BadHeader
	HeadTooLarge
	HeadTimeout
	VersionParse
	HttpVersionTooOld
	HttpVersionTooNew
	NoRouteFound
	NoHandlerFound
	AmbiguousHandler
	MediaTypeParse
	IllegalBody
	BodyTimeout
	EndOfStream
	ResponseTimeout
	ResponseRejected
	ClientAborted
	RouteCollision
	HandlerCollision
)

func (k Kind) String() string {
	switch k {
	case HeadParse:
		return "HeadParse"
	case BadHeader:
		return "BadHeader"
	case HeadTooLarge:
		return "HeadTooLarge"
	case HeadTimeout:
		return "HeadTimeout"
	case VersionParse:
		return "VersionParse"
	case HttpVersionTooOld:
		return "HttpVersionTooOld"
	case HttpVersionTooNew:
		return "HttpVersionTooNew"
	case NoRouteFound:
		return "NoRouteFound"
	case NoHandlerFound:
		return "NoHandlerFound"
	case AmbiguousHandler:
		return "AmbiguousHandler"
	case MediaTypeParse:
		return "MediaTypeParse"
	case IllegalBody:
		return "IllegalBody"
	case BodyTimeout:
		return "BodyTimeout"
	case EndOfStream:
		return "EndOfStream"
	case ResponseTimeout:
		return "ResponseTimeout"
	case ResponseRejected:
		return "ResponseRejected"
	case ClientAborted:
		return "ClientAborted"
	case RouteCollision:
		return "RouteCollision"
	case HandlerCollision:
		return "HandlerCollision"
	default:
		return "Internal"
	}
}

// RejectReason distinguishes the three ways the response pipeline can
// refuse a response.
type RejectReason int

const (
	AlreadyFinal RejectReason = iota
	ChannelClosed
	ProtocolNotSupported
)

func (r RejectReason) String() string {
	switch r {
	case AlreadyFinal:
		return "ALREADY_FINAL"
	case ChannelClosed:
		return "CHANNEL_CLOSED"
	case ProtocolNotSupported:
		return "PROTOCOL_NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Error is the single error type the core raises and the recovery chain
// dispatches on. Kind identifies which row of the default table applies;
// Cause, when present, is the lower-level failure that triggered it.
//
// HandlerFault distinguishes MediaTypeParse/IllegalBody raised while no
// handler had yet been selected (client fault, 400) from the same kinds
// raised after a handler produced an illegal response (application fault,
// 500).
type Error struct {
	Kind         Kind
	Cause        error
	Upgrade      string       // set only for HttpVersionTooOld
	RejectReason RejectReason // set only for ResponseRejected
	HandlerFault bool         // set only for MediaTypeParse / IllegalBody
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("httpcore: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("httpcore: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, SomeKind) style checks work by comparing Kind when
// the target is itself an *Error with no cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind && other.Cause == nil
}

// NewError builds a bare *Error of the given kind.
func NewError(kind Kind) *Error { return &Error{Kind: kind} }

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error) *Error { return &Error{Kind: kind, Cause: cause} }

// unwrapCause walks a generic completion-failure wrapper down to the *Error
// it wraps, or manufactures an Internal *Error if none is found. This is
// the only place a bare error is allowed to enter the recovery chain.
func unwrapCause(err error) *Error {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return Wrap(Internal, err)
		}
		err = unwrapped
	}
	return NewError(Internal)
}

// appendSuppressed attaches prior as a suppressed cause of latest using
// multierr, preserving the recovery trail for observability without
// inventing a parallel bookkeeping slice.
func appendSuppressed(latest error, prior error) error {
	if prior == nil {
		return latest
	}
	return multierr.Append(latest, prior)
}

// suppressedTrail returns every error folded into err by appendSuppressed,
// most-recent first.
func suppressedTrail(err error) []error {
	return multierr.Errors(err)
}
