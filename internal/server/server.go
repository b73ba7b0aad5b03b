// Package server wires the NFSv3, MOUNT, and PORTMAP protocol handlers to
// a TCP listener: RPC record-marking, program/version/procedure routing,
// duplicate-request suppression, and connection lifecycle.
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/drc"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/handle"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/logger"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/metrics"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/mount"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/nfs3"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/portmap"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// Option configures a Server at construction time.
type Option func(*Server)

// WithMetrics attaches m so the server records request counts, latency,
// DRC size, and active connections against it. Omit for a server that
// doesn't export metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server serves NFSv3, MOUNT v3, and PORTMAP v2 over a single TCP listener.
type Server struct {
	cfg Config

	nfs     *nfs3.Server
	mount   *mount.Handler
	portmap *portmap.Handler
	drc     *drc.Cache
	metrics *metrics.Metrics

	listener net.Listener
	connSem  *semaphore.Weighted

	activeConns sync.WaitGroup
	connCount   atomic.Int32
	conns       sync.Map // net.Conn -> struct{}, tracked for shutdown

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// shutdownReadDeadline bounds how long an already-accepted connection's
// blocking Read can keep Stop waiting: long enough for an in-flight read to
// finish, short enough that shutdown doesn't stall for IdleTimeout.
const shutdownReadDeadline = 100 * time.Millisecond

// New builds a Server exposing fs as the single export. The server's own
// listening port is not known until Serve binds the listener, so the
// portmap handler's advertised port is set lazily at that point.
func New(fs vfs.FileSystem, cfg Config, opts ...Option) *Server {
	cfg.applyDefaults()

	gen := handle.NewGeneration()
	codec := handle.NewCodec(gen)

	s := &Server{
		cfg:      cfg,
		nfs:      nfs3.NewServer(fs, gen),
		mount:    mount.NewHandler(fs, codec),
		portmap:  portmap.NewHandler(0),
		drc:      drc.New(drcOptions(cfg)...),
		shutdown: make(chan struct{}),
	}
	if cfg.MaxConnections > 0 {
		s.connSem = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func drcOptions(cfg Config) []drc.Option {
	var opts []drc.Option
	if cfg.DRCTTL > 0 {
		opts = append(opts, drc.WithTTL(cfg.DRCTTL))
	}
	if cfg.DRCMaxEntries > 0 {
		opts = append(opts, drc.WithMaxEntries(cfg.DRCMaxEntries))
	}
	return opts
}

// Serve binds the listener and accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener

	if _, portStr, err := net.SplitHostPort(listener.Addr().String()); err == nil {
		if port, err := strconv.Atoi(portStr); err == nil {
			s.portmap.Port = uint32(port)
		}
	}

	logger.Info("nfs server listening", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.activeConns.Wait()
				return nil
			default:
				logger.Warn("accept error", "error", err)
				continue
			}
		}

		if s.connSem != nil {
			if err := s.connSem.Acquire(ctx, 1); err != nil {
				_ = conn.Close()
				continue
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)
		s.conns.Store(conn, struct{}{})
		s.metrics.SetActiveConnections(s.connCount.Load())
		go func(c net.Conn) {
			defer func() {
				_ = c.Close()
				s.conns.Delete(c)
				if s.connSem != nil {
					s.connSem.Release(1)
				}
				s.connCount.Add(-1)
				s.metrics.SetActiveConnections(s.connCount.Load())
				s.activeConns.Done()
			}()
			s.serveConn(ctx, c)
		}(conn)
	}
}

// Stop closes the listener, causing Serve's accept loop to unwind, and
// interrupts any connection currently blocked in a read so it notices
// shutdown promptly instead of waiting out its IdleTimeout.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.interruptBlockingReads()
	})
}

// interruptBlockingReads sets a short read deadline on every tracked
// connection so a goroutine parked in serveConn's ReadMessage wakes up and
// exits on the next loop iteration rather than waiting for its client to
// send something or for IdleTimeout to elapse.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(shutdownReadDeadline)
	s.conns.Range(func(key, _ any) bool {
		if conn, ok := key.(net.Conn); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		return true
	})
}

// ActiveConnections reports the current number of accepted connections,
// for metrics.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// DRCSize reports the duplicate request cache's current entry count, for
// metrics.
func (s *Server) DRCSize() int {
	return s.drc.Len()
}
