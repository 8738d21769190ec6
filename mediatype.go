// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"mime"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MediaType is a parsed Content-Type/Accept entry. The innermost parse
// step below uses the standard library's mime package, since media-type
// grammar (quoted parameters, case folding, RFC 2231 extensions) is a
// solved problem the standard library already solves correctly and no
// dependency in the ecosystem improves on for this narrow a job.
// Everything built on top of that parse — specificity ranking, Accept-list
// matching — is this package's own.
type MediaType struct {
	Type    string
	Subtype string
	Q       float64 // 0..1, relevant only for Accept-header entries
}

func (m MediaType) String() string {
	if m.Type == "" && m.Subtype == "" {
		return ""
	}
	return m.Type + "/" + m.Subtype
}

// specificity ranks exact (2) > a range with one wildcard part (1) > */*
// (0); a type wildcard such as */json ranks the same as a subtype wildcard.
func (m MediaType) specificity() int {
	switch {
	case m.Type == "*" && m.Subtype == "*":
		return 0
	case m.Subtype == "*":
		return 1
	case m.Type == "*":
		return 1 // a bare type wildcard without "*/*" is non-standard; treat like subtype-wildcard specificity
	default:
		return 2
	}
}

var mediaTypeCache, _ = lru.New[string, MediaType](256)

// ParseMediaType parses a single Content-Type-shaped value (no q
// parameter expected, but tolerated and ignored). Results are cached by
// raw string via golang-lru, since the same handful of Content-Type
// strings repeat across every request on a connection and re-running the
// mime grammar on each one is pure waste.
func ParseMediaType(raw string) (MediaType, error) {
	if cached, ok := mediaTypeCache.Get(raw); ok {
		return cached, nil
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return MediaType{}, Wrap(MediaTypeParse, err)
	}
	typ, sub, ok := strings.Cut(mt, "/")
	if !ok {
		return MediaType{}, Wrap(MediaTypeParse, nil)
	}
	parsed := MediaType{Type: typ, Subtype: sub, Q: 1}
	mediaTypeCache.Add(raw, parsed)
	return parsed, nil
}

// ParseAccept parses an Accept header value into an ordered list of media
// ranges with their q-values. A missing q defaults to 1.0. Malformed
// entries are skipped rather than failing the whole header, the forgiving
// behavior every HTTP/1 server takes toward a client-supplied Accept
// header.
func ParseAccept(header string) []MediaType {
	if header == "" {
		return []MediaType{{Type: "*", Subtype: "*", Q: 1}}
	}
	var out []MediaType
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, q := parseRangeWithQ(part)
		if mt.Type == "" {
			continue
		}
		mt.Q = q
		out = append(out, mt)
	}
	if len(out) == 0 {
		return []MediaType{{Type: "*", Subtype: "*", Q: 1}}
	}
	return out
}

func parseRangeWithQ(part string) (MediaType, float64) {
	fields := strings.Split(part, ";")
	typePart := strings.TrimSpace(fields[0])
	typ, sub, ok := strings.Cut(typePart, "/")
	if !ok {
		return MediaType{}, 1
	}
	q := 1.0
	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		name, value, ok := strings.Cut(f, "=")
		if ok && strings.EqualFold(strings.TrimSpace(name), "q") {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				q = parsed
			}
		}
	}
	return MediaType{Type: strings.TrimSpace(typ), Subtype: strings.TrimSpace(sub)}, q
}

// Covers reports whether pattern (a Content-Type pattern a handler
// declared it Accepts, e.g. "application/json", "text/*", "*/*", or "" for
// "anything") covers concrete (a parsed request Content-Type).
func Covers(pattern string, concrete MediaType) bool {
	if pattern == "" {
		return true
	}
	p, err := ParseMediaType(pattern)
	if err != nil {
		return false
	}
	if p.Type != "*" && !strings.EqualFold(p.Type, concrete.Type) {
		return false
	}
	if p.Subtype != "*" && !strings.EqualFold(p.Subtype, concrete.Subtype) {
		return false
	}
	return true
}

// rankProduce returns the best (specificity, q) pairing between produce (a
// media type a handler can emit) and the client's accept list, or ok=false
// if nothing in accept matches produce at all.
func rankProduce(produce string, accept []MediaType) (spec int, q float64, ok bool) {
	pmt, err := ParseMediaType(produce)
	if err != nil {
		return 0, 0, false
	}
	best := -1
	bestQ := 0.0
	for _, a := range accept {
		if a.Q <= 0 {
			continue
		}
		if !mediaTypeMatches(a, pmt) {
			continue
		}
		s := a.specificity()
		if s > best || (s == best && a.Q > bestQ) {
			best = s
			bestQ = a.Q
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestQ, true
}

func mediaTypeMatches(rangeType, concrete MediaType) bool {
	if rangeType.Type != "*" && !strings.EqualFold(rangeType.Type, concrete.Type) {
		return false
	}
	if rangeType.Subtype != "*" && !strings.EqualFold(rangeType.Subtype, concrete.Subtype) {
		return false
	}
	return true
}

