// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"strings"

	"github.com/samber/lo"
)

// HandlerFunc handles one matched exchange. It receives the request and a
// ResponseWriter through which it emits zero or more interim responses
// followed by exactly one final response. A handler that wants to complete
// asynchronously simply blocks on whatever it's waiting for before calling
// rw.Write — each exchange already runs on its own worker-pool goroutine
// (pool.go), so "synchronous vs asynchronous" collapses to "did it block"
// rather than needing two separate APIs.
type HandlerFunc func(req *Request, rw ResponseWriter) error

// Handler is the (method, accepts, produces, callable) tuple a Route
// resolves a request to. Accepts is a Content-Type pattern the handler
// requires the request body to match ("" means "no particular type
// required"); Produces is the ordered list of media types the handler is
// able to emit.
type Handler struct {
	Method   string
	Accepts  string
	Produces []string
	Func     HandlerFunc
}

func (h *Handler) acceptsKey() string  { return h.Accepts }
func (h *Handler) producesKey() string { return strings.Join(h.Produces, ",") }

// SelectHandler filters by method, filters by content-type compatibility,
// ranks survivors against the accept list, and resolves to exactly one
// handler or a well-defined failure.
func SelectHandler(handlers []*Handler, method string, requestContentType string, acceptHeader string) (*Handler, error) {
	byMethod := lo.Filter(handlers, func(h *Handler, _ int) bool { return h.Method == method })
	if len(byMethod) == 0 {
		return nil, NewError(NoHandlerFound)
	}

	var byContentType []*Handler
	if requestContentType == "" {
		byContentType = byMethod
	} else {
		concrete, err := ParseMediaType(requestContentType)
		if err != nil {
			return nil, Wrap(MediaTypeParse, err)
		}
		byContentType = lo.Filter(byMethod, func(h *Handler, _ int) bool { return Covers(h.Accepts, concrete) })
	}
	if len(byContentType) == 0 {
		return nil, NewError(NoHandlerFound)
	}

	accept := ParseAccept(acceptHeader)
	type ranked struct {
		handler *Handler
		spec    int
		q       float64
	}
	var survivors []ranked
	for _, h := range byContentType {
		bestSpec, bestQ, matched := bestProduceRank(h.Produces, accept)
		if matched {
			survivors = append(survivors, ranked{h, bestSpec, bestQ})
		}
	}
	if len(survivors) == 0 {
		return nil, NewError(NoHandlerFound)
	}

	top := lo.MaxBy(survivors, func(a, b ranked) bool {
		if a.spec != b.spec {
			return a.spec > b.spec
		}
		return a.q > b.q
	})
	tiedAtTop := lo.Filter(survivors, func(r ranked, _ int) bool { return r.spec == top.spec && r.q == top.q })
	if len(tiedAtTop) > 1 {
		return nil, NewError(AmbiguousHandler)
	}
	return top.handler, nil
}

func bestProduceRank(produces []string, accept []MediaType) (spec int, q float64, ok bool) {
	best := -1
	bestQ := 0.0
	if len(produces) == 0 {
		// A handler declaring no explicit Produces is treated as able to
		// satisfy any accept range at the lowest (wildcard) specificity,
		// paired with the highest q in the accept list. A handler whose
		// declared type matches a more specific range always wins over it;
		// at wildcard specificity the higher q wins.
		for _, a := range accept {
			if a.Q > bestQ {
				bestQ = a.Q
				best = 0
			}
		}
		return best, bestQ, best >= 0
	}
	for _, p := range produces {
		s, q, matched := rankProduce(p, accept)
		if !matched {
			continue
		}
		if s > best || (s == best && q > bestQ) {
			best, bestQ = s, q
		}
	}
	return best, bestQ, best >= 0
}
