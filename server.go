// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"net"
	"sync"
	"sync/atomic"
)

// Server owns the configuration, route registry, error recovery chain,
// worker pool, and logger shared by every connection it accepts, across
// however many listening endpoints Start opens. A server isn't limited to
// one listening address: each Start call opens an independent Gate, the
// way a production HTTP server commonly binds several addresses (plain
// and TLS, IPv4 and IPv6) under one shared configuration.
type Server struct {
	config   Config
	registry *Registry
	recovery *RecoveryChain
	pool     *WorkerPool
	logger   *Logger

	nextConnID atomic.Int64

	mu    sync.Mutex
	gates []*Gate
}

// NewServer builds a Server. A nil registry gets an empty NewRegistry; a
// nil recovery gets a bare NewRecoveryChain with no custom Interceptors; a
// nil logger gets NopLogger.
func NewServer(config Config, registry *Registry, recovery *RecoveryChain, logger *Logger) *Server {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = NopLogger()
	}
	if recovery == nil {
		recovery = NewRecoveryChain(logger, config.MaxErrorRecoveryAttempts)
	}
	return &Server{
		config:   config,
		registry: registry,
		recovery: recovery,
		pool:     InitPool(config.WorkerPoolSize),
		logger:   logger,
	}
}

// Registry exposes the server's route registry for Insert/RemoveByPattern
// calls made before or after Start.
func (s *Server) Registry() *Registry { return s.registry }

// Start opens a new TCP listening endpoint at addr and begins accepting
// connections on it in a background goroutine. A Server may have any
// number of open Gates simultaneously, each independently Stoppable.
func (s *Server) Start(addr string) (*Gate, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gate := &Gate{server: s, listener: ln, conns: make(map[*conn]struct{})}
	gate.wg.Add(1)
	s.mu.Lock()
	s.gates = append(s.gates, gate)
	s.mu.Unlock()
	go gate.serve()
	return gate, nil
}

// Stop closes every gate's listener and returns once each gate's accept
// loop has exited. It does not wait for already-accepted connections:
// those keep serving until they close on their own.
func (s *Server) Stop() {
	for _, g := range s.snapshotGates() {
		g.stop(false)
	}
}

// StopNow closes every gate and forcibly closes every open connection,
// abandoning whatever exchange was in flight on each.
func (s *Server) StopNow() {
	for _, g := range s.snapshotGates() {
		g.stop(true)
	}
}

func (s *Server) snapshotGates() []*Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Gate(nil), s.gates...)
}

// Gate is one of a Server's listening endpoints.
type Gate struct {
	server   *Server
	listener net.Listener

	mu      sync.Mutex
	closing bool
	conns   map[*conn]struct{}
	wg      sync.WaitGroup
}

// Addr returns the gate's actual bound address, useful when Start was
// called with a ":0" port.
func (g *Gate) Addr() net.Addr { return g.listener.Addr() }

func (g *Gate) serve() {
	defer g.wg.Done()
	for {
		netConn, err := g.listener.Accept()
		if err != nil {
			return
		}
		id := g.server.nextConnID.Add(1)
		c := getConn(id, g.server, g, netConn)
		g.track(c)
		go func() {
			defer g.untrack(c)
			c.serve()
		}()
	}
}

func (g *Gate) track(c *conn) {
	g.mu.Lock()
	g.conns[c] = struct{}{}
	g.mu.Unlock()
}

func (g *Gate) untrack(c *conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}

// stop closes the listener and, if now is true, every tracked connection's
// net.Conn immediately; otherwise it only waits for the accept loop to
// exit, leaving already-accepted connections to finish on their own.
func (g *Gate) stop(now bool) {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return
	}
	g.closing = true
	conns := make([]*conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	g.listener.Close()
	g.wg.Wait()

	if now {
		for _, c := range conns {
			c.netConn.Close()
		}
	}
}
