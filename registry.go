// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// node is one position in the route tree. At most one of param/catch is
// non-nil, and if catch is non-nil, static and param are both empty: a
// catch-all constrains that no further siblings or children may be added
// at its position.
//
// Nodes are immutable once published: Insert/Remove build a new spine of
// nodes along the affected path and swap the registry's root atomically,
// so Lookup never takes a lock. The shape — a node holding one of several
// kinds of child depending on what it matches — mirrors how a host-routing
// server typically splits exact, suffix, and prefix matches into distinct
// child kinds at each level rather than one generic map.
type node struct {
	static map[string]*node
	param  *node
	catch  *node
	route  *Route // non-nil if a route terminates exactly here
}

func (n *node) clone() *node {
	if n == nil {
		return &node{}
	}
	c := &node{param: n.param, catch: n.catch, route: n.route}
	if n.static != nil {
		c.static = make(map[string]*node, len(n.static))
		for k, v := range n.static {
			c.static[k] = v
		}
	}
	return c
}

// Registry is the route tree: a reader-preferring, linearisable structure
// where lookups are lock-free and insert/remove serialise briefly behind a
// single writer mutex.
type Registry struct {
	root    atomic.Pointer[node]
	writeMu sync.Mutex
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.root.Store(&node{})
	return reg
}

// Insert adds route to the registry. Returns RouteCollision if an
// exact-signature clash already occupies the position, independent of the
// order routes are inserted in.
func (g *Registry) Insert(route *Route) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	newRoot, err := insertAt(g.root.Load(), route.Segments, route)
	if err != nil {
		return err
	}
	g.root.Store(newRoot)
	return nil
}

func insertAt(n *node, segs []Segment, route *Route) (*node, error) {
	c := n.clone()
	if len(segs) == 0 {
		if c.route != nil {
			return nil, NewError(RouteCollision)
		}
		c.route = route
		return c, nil
	}
	seg := segs[0]
	switch seg.Kind {
	case SegmentStatic:
		if c.catch != nil {
			return nil, NewError(RouteCollision)
		}
		child, err := insertAt(c.static[seg.Literal], segs[1:], route)
		if err != nil {
			return nil, err
		}
		if c.static == nil {
			c.static = make(map[string]*node, 1)
		}
		c.static[seg.Literal] = child
		return c, nil
	case SegmentParam:
		if c.catch != nil {
			return nil, NewError(RouteCollision)
		}
		child, err := insertAt(c.param, segs[1:], route)
		if err != nil {
			return nil, err
		}
		c.param = child
		return c, nil
	case SegmentCatchAll:
		if c.catch != nil || len(c.static) > 0 || c.param != nil {
			return nil, NewError(RouteCollision)
		}
		child, err := insertAt(nil, segs[1:], route) // segs[1:] is empty; catch-all is last
		if err != nil {
			return nil, err
		}
		c.catch = child
		return c, nil
	}
	return nil, NewError(RouteCollision)
}

// RemoveByPattern removes whatever route occupies the normalised pattern's
// position, regardless of identity. Returns true if something was removed.
func (g *Registry) RemoveByPattern(pattern string) (bool, error) {
	route, err := ParseRoute(pattern)
	if err != nil {
		return false, err
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	newRoot, removed := removeAt(g.root.Load(), route.Segments, nil)
	if removed {
		g.root.Store(newRoot)
	}
	return removed, nil
}

// RemoveByIdentity removes route only if the occupant at its position is
// the same *Route value. Calling it twice for the same route returns true
// then false, and leaves the registry unchanged after the second call.
func (g *Registry) RemoveByIdentity(route *Route) bool {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	newRoot, removed := removeAt(g.root.Load(), route.Segments, route)
	if removed {
		g.root.Store(newRoot)
	}
	return removed
}

// removeAt clears the terminal route at the position named by segs. If
// identity is non-nil, the occupant must equal it for removal to happen.
func removeAt(n *node, segs []Segment, identity *Route) (*node, bool) {
	if n == nil {
		return nil, false
	}
	c := n.clone()
	if len(segs) == 0 {
		if c.route == nil || (identity != nil && c.route != identity) {
			return n, false
		}
		c.route = nil
		return c, true
	}
	seg := segs[0]
	switch seg.Kind {
	case SegmentStatic:
		child, ok := c.static[seg.Literal]
		if !ok {
			return n, false
		}
		newChild, removed := removeAt(child, segs[1:], identity)
		if !removed {
			return n, false
		}
		c.static[seg.Literal] = newChild
		return c, true
	case SegmentParam:
		newChild, removed := removeAt(c.param, segs[1:], identity)
		if !removed {
			return n, false
		}
		c.param = newChild
		return c, true
	case SegmentCatchAll:
		newChild, removed := removeAt(c.catch, segs[1:], identity)
		if !removed {
			return n, false
		}
		c.catch = newChild
		return c, true
	}
	return n, false
}

// ParamBinding is one extracted path parameter.
type ParamBinding struct {
	Name    string
	Raw     string
	Decoded string
}

// Match is the transient result of a route lookup.
type Match struct {
	Route  *Route
	Params []ParamBinding
}

// Lookup normalises path before walking the tree. lookup(p) ==
// lookup(normalise(p)) by construction, since normalisation always runs
// first.
func (g *Registry) Lookup(path string) (*Match, error) {
	rawSegs, decodedSegs, err := normalisePath(path)
	if err != nil {
		return nil, Wrap(HeadParse, err)
	}
	n := g.root.Load()
	m := &Match{}
	if walk(n, rawSegs, decodedSegs, m) {
		return m, nil
	}
	return nil, NewError(NoRouteFound)
}

func walk(n *node, raw, decoded []string, m *Match) bool {
	if n == nil {
		return false
	}
	if len(decoded) == 0 {
		if n.route == nil {
			return false
		}
		m.Route = n.route
		bindParamNames(m)
		return true
	}
	head, tailRaw, tailDecoded := decoded[0], raw[1:], decoded[1:]
	if child, ok := n.static[head]; ok {
		save := *m
		if walk(child, tailRaw, tailDecoded, m) {
			return true
		}
		*m = save
	}
	if n.param != nil {
		save := *m
		m.Params = append(m.Params, ParamBinding{Raw: raw[0], Decoded: decoded[0]})
		if walk(n.param, tailRaw, tailDecoded, m) {
			return true
		}
		*m = save
	}
	if n.catch != nil && n.catch.route != nil {
		rawRemainder := strings.Join(raw, "/")
		decodedRemainder := decodePathSegment(rawRemainder)
		m.Route = n.catch.route
		m.Params = append(m.Params, ParamBinding{Raw: rawRemainder, Decoded: decodedRemainder})
		bindParamNames(m)
		return true
	}
	return false
}

// bindParamNames fills in the Name field of each positional binding
// collected during walk, using the matched route's own segment names. The
// tree itself carries no parameter names (only shape), because two
// different routes sharing a param-bearing prefix are free to name that
// parameter differently.
func bindParamNames(m *Match) {
	i := 0
	for _, seg := range m.Route.Segments {
		switch seg.Kind {
		case SegmentParam, SegmentCatchAll:
			if i < len(m.Params) {
				m.Params[i].Name = seg.Name
				i++
			}
		}
	}
}

// normalisePath collapses repeated slashes, resolves "." and ".." segments,
// and percent-decodes what's left, returning the raw (pre-decode) and
// decoded segment lists in lockstep. Dot-segment resolution runs on the
// raw segments, before decoding, so a percent-encoded ".." is a literal
// segment, never a navigation — matching standard URI normalisation.
func normalisePath(path string) (raw []string, decoded []string, err error) {
	collapsed := collapseSlashes(path)
	trimmed := strings.TrimRight(collapsed, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(strings.TrimPrefix(trimmed, "/"), "/")
	}

	resolved := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case ".":
			// dropped
		case "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
			// underflow: discard the ".." itself
		default:
			resolved = append(resolved, p)
		}
	}

	decodedSegs := make([]string, len(resolved))
	for i, seg := range resolved {
		decodedSegs[i] = decodePathSegment(seg)
	}
	return resolved, decodedSegs, nil
}

func collapseSlashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSlash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// decodePathSegment percent-decodes seg as UTF-8, treating '+' literally
// (no space conversion). An undecodable escape is left verbatim rather
// than rejected, matching how url.PathUnescape degrades.
func decodePathSegment(seg string) string {
	decoded, err := url.PathUnescape(seg)
	if err != nil {
		return seg
	}
	return decoded
}
