// Package ioserver implements the object-storage I/O server: a daemon that
// accepts submission queries over a Unix or TCP socket and runs them
// against a relational backend, one driver handle per client.
//
// Requests and responses are the JSON lines of the objstore wire format.
// Each client session carries a UUID and a logical clock; when a journal is
// configured every executed statement is recorded under that session.
package ioserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/driver/relational"
	"github.com/roach88/fragio/internal/journal"
)

// DefaultBackend is served when Config.Backend is empty.
const DefaultBackend = relational.TypeName + driver.IdentifierSeparator + relational.SQLite

// shutdownTimeout bounds the wait for client sessions on shutdown.
const shutdownTimeout = 5 * time.Second

// Journal records executed statements.
type Journal interface {
	Append(ctx context.Context, rec journal.Record) error
}

// Config configures a Server.
type Config struct {
	// Network is "unix" (default) or "tcp".
	Network string
	// Address is the socket path or host:port to listen on.
	Address string
	// Backend is the TYPE:SUBTYPE identifier each session resolves.
	Backend string
	// Params connect every session's handle. For the default sqlite3
	// backend an empty DSN becomes a private shared-cache memory database,
	// so all sessions see the same tables.
	Params driver.Params
	// MaxQueryLength caps statements translated by relational backends;
	// 0 means the translator default.
	MaxQueryLength int

	Registry *driver.Registry
	Journal  Journal
	Logger   *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Network == "" {
		c.Network = "unix"
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Registry == nil {
		c.Registry = driver.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Backend == DefaultBackend && c.Params.DSN == "" {
		c.Params.DSN = fmt.Sprintf("file:fragio-%s?mode=memory&cache=shared", uuid.NewString())
	}
}

// Server serves one backend to many clients.
type Server struct {
	cfg    Config
	logger *slog.Logger

	// anchor keeps the backend connected for the server's lifetime. A
	// shared-cache memory database lives only while a connection is open.
	anchor *driver.Handle

	wg     sync.WaitGroup
	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// New validates cfg and connects the anchor handle.
func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.applyDefaults()
	if cfg.Network != "unix" && cfg.Network != "tcp" {
		return nil, fmt.Errorf("unsupported network %q", cfg.Network)
	}
	if cfg.Address == "" {
		return nil, errors.New("listen address is empty")
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("backend", cfg.Backend),
		conns:  make(map[net.Conn]struct{}),
	}

	anchor, err := s.openHandle(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect backend: %w", err)
	}
	s.anchor = anchor
	return s, nil
}

// openHandle resolves, sets up and connects a fresh backend handle.
func (s *Server) openHandle(ctx context.Context) (*driver.Handle, error) {
	h, err := s.cfg.Registry.Resolve(s.cfg.Backend)
	if err != nil {
		return nil, err
	}
	if d, ok := h.Driver().(*relational.Driver); ok {
		d.MaxQueryLength = s.cfg.MaxQueryLength
	}
	if err := h.Setup(); err != nil {
		h.Cleanup()
		return nil, err
	}
	if err := h.Connect(ctx, s.cfg.Params); err != nil {
		h.Cleanup()
		return nil, err
	}
	return h, nil
}

// Close releases the backend. Serve closes the server on return; callers
// that never reach Serve close it themselves. Calling it again is a no-op.
func (s *Server) Close() error {
	return s.anchor.Cleanup()
}

// Listen opens the configured listener. A stale socket file is removed
// and the new one is restricted to its owner.
func (s *Server) Listen() (net.Listener, error) {
	if s.cfg.Network == "unix" {
		if err := os.Remove(s.cfg.Address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen(s.cfg.Network, s.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}

	if s.cfg.Network == "unix" {
		if err := os.Chmod(s.cfg.Address, 0600); err != nil {
			ln.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	}
	return ln, nil
}

// ListenAndServe listens and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. On shutdown it
// closes live client connections, waits for their sessions, and releases
// the backend.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() {
		ln.Close()
		if s.cfg.Network == "unix" {
			os.Remove(s.cfg.Address)
		}
		if err := s.Close(); err != nil {
			s.logger.Warn("backend cleanup failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.connMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connMu.Unlock()
	}()

	s.logger.Info("serving", "network", s.cfg.Network, "address", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				done := make(chan struct{})
				go func() { s.wg.Wait(); close(done) }()
				select {
				case <-done:
				case <-time.After(shutdownTimeout):
					s.logger.Warn("shutdown timeout, abandoning sessions")
				}
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
			s.connMu.Lock()
			delete(s.conns, conn)
			s.connMu.Unlock()
		}()
	}
}
