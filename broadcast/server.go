// Package broadcast implements the stream-oriented multi-client fan-out
// sink: accept connections, write every broadcast sentence to every
// connected peer, and evict peers that stop accepting writes.
package broadcast

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond"
	"github.com/charmbracelet/log"

	"github.com/tidewatch/aisbridge"
)

// sweepInterval is how often dead peers are pruned from the registry.
const sweepInterval = 5 * time.Second

// probeTimeout bounds the read used to detect a disconnected peer during a
// sweep; it never blocks the sweep loop noticeably.
const probeTimeout = 2 * time.Millisecond

// Config configures a Server.
type Config struct {
	Host           string
	Port           int
	MaxConnections int
	Logger         *log.Logger
	Stats          *aisbridge.Stats
}

// Server is the TCP broadcast sink described for component C5. The peer
// registry is the only piece of shared mutable state; every mutation and
// every broadcast snapshot goes through peersMu, and no network write
// happens while that lock is held.
type Server struct {
	cfg    Config
	logger *log.Logger
	stats  *aisbridge.Stats

	listener net.Listener
	pool     *pond.WorkerPool
	cancel   context.CancelFunc

	peersMu sync.Mutex
	peers   map[net.Conn]struct{}

	wg sync.WaitGroup
}

// New builds a Server; call Start to bind and begin accepting connections.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = aisbridge.NewStats()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		stats:  stats,
		peers:  make(map[net.Conn]struct{}),
	}
}

// Start binds the listening socket and begins accepting and sweeping in
// background goroutines tied to ctx. It returns false (never an error to the
// caller) when the bind fails, per the BindFailure error class: the rest of
// the system keeps running without this sink.
func (s *Server) Start(ctx context.Context) bool {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("broadcast bind failed", "err", fmt.Errorf("%w: %v", aisbridge.ErrBindFailure, err))
		return false
	}
	s.listener = ln
	ctx, s.cancel = context.WithCancel(ctx)

	poolSize := s.cfg.MaxConnections
	if poolSize < 4 {
		poolSize = 4
	}
	s.pool = pond.New(poolSize, 0, pond.MinWorkers(poolSize), pond.Context(ctx))

	s.wg.Add(2)
	go s.acceptLoop(ctx)
	go s.sweepLoop(ctx)

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	return true
}

// Stop closes the listener, evicts all peers, and drains the worker pool.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()

	s.peersMu.Lock()
	for c := range s.peers {
		_ = c.Close()
	}
	s.peers = make(map[net.Conn]struct{})
	s.peersMu.Unlock()

	if s.pool != nil {
		s.pool.StopAndWait()
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed, either by Stop or ctx cancellation
		}

		s.peersMu.Lock()
		if s.cfg.MaxConnections > 0 && len(s.peers) >= s.cfg.MaxConnections {
			s.peersMu.Unlock()
			_ = conn.Close()
			continue
		}
		s.peers[conn] = struct{}{}
		count := len(s.peers)
		s.peersMu.Unlock()

		s.logger.Info("broadcast peer connected", "remote", conn.RemoteAddr(), "peers", count)
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepDeadPeers()
		}
	}
}

func (s *Server) sweepDeadPeers() {
	s.peersMu.Lock()
	var dead []net.Conn
	for c := range s.peers {
		if !isAlive(c) {
			dead = append(dead, c)
			delete(s.peers, c)
		}
	}
	s.peersMu.Unlock()

	for _, c := range dead {
		_ = c.Close()
		s.logger.Info("broadcast peer evicted (dead)", "remote", c.RemoteAddr())
	}
}

// isAlive probes a connection non-destructively: a read that times out means
// the peer is still there with nothing to say (expected, since clients never
// send us data); any other read error means it has gone away.
func isAlive(conn net.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(probeTimeout))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	_ = conn.SetReadDeadline(time.Time{})
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}

// Broadcast writes data to every connected peer concurrently via the
// server's worker pool and returns how many peers accepted the full write.
// A peer whose write fails is evicted immediately, independent of the
// periodic sweep.
func (s *Server) Broadcast(data []byte) int {
	s.peersMu.Lock()
	snapshot := make([]net.Conn, 0, len(s.peers))
	for c := range s.peers {
		snapshot = append(snapshot, c)
	}
	s.peersMu.Unlock()

	if len(snapshot) == 0 {
		return 0
	}

	var sent int64
	var wg sync.WaitGroup
	wg.Add(len(snapshot))
	for _, conn := range snapshot {
		conn := conn
		s.pool.Submit(func() {
			defer wg.Done()
			if _, err := conn.Write(data); err != nil {
				s.evict(conn)
				s.logger.Debug("broadcast peer write failed", "err", fmt.Errorf("%w: %v", aisbridge.ErrPeerWrite, err))
				return
			}
			atomic.AddInt64(&sent, 1)
		})
	}
	wg.Wait()

	s.stats.IncBroadcast(uint64(sent))
	return int(sent)
}

func (s *Server) evict(conn net.Conn) {
	s.peersMu.Lock()
	delete(s.peers, conn)
	s.peersMu.Unlock()
	_ = conn.Close()
}

// Addr returns the listener's bound address, useful when Port is 0 and the
// OS picked an ephemeral port (as in tests).
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// PeerCount reports the current number of connected peers.
func (s *Server) PeerCount() int {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	return len(s.peers)
}
