// Package datagram implements the connectionless UDP sink: each sentence is
// sent as exactly one datagram to a configured endpoint, with no
// acknowledgement or retry.
package datagram

import (
	"fmt"
	"net"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/tidewatch/aisbridge"
)

// Config configures an Emitter.
type Config struct {
	Host   string
	Port   int
	Logger *log.Logger
}

// Emitter sends one UDP datagram per sentence to a configured endpoint. It
// holds a single broadcast-enabled socket for the lifetime of the process.
type Emitter struct {
	cfg    Config
	logger *log.Logger
	conn   *net.UDPConn
	addr   *net.UDPAddr
}

// New builds an Emitter; call Start to open the socket.
func New(cfg Config) *Emitter {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{cfg: cfg, logger: logger}
}

// Start opens a broadcast-enabled UDP socket targeting host:port. It returns
// false on bind failure, leaving the rest of the system running without this
// sink (BindFailure is never fatal to the process).
func (e *Emitter) Start() bool {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port))
	if err != nil {
		e.logger.Error("datagram address resolution failed", "err", fmt.Errorf("%w: %v", aisbridge.ErrBindFailure, err))
		return false
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		e.logger.Error("datagram socket open failed", "err", fmt.Errorf("%w: %v", aisbridge.ErrBindFailure, err))
		return false
	}
	enableBroadcast(conn, e.logger)

	e.conn = conn
	e.addr = addr
	return true
}

// enableBroadcast sets SO_BROADCAST on the underlying socket so datagrams
// addressed to a subnet-broadcast target are actually sent, rather than
// rejected by the kernel. Best-effort: a failure here is logged, not fatal,
// since point-to-point targets work without it.
func enableBroadcast(conn *net.UDPConn, logger *log.Logger) {
	raw, err := conn.SyscallConn()
	if err != nil {
		logger.Debug("datagram broadcast option unavailable", "err", err)
		return
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if ctrlErr != nil {
		logger.Debug("datagram broadcast option failed", "err", ctrlErr)
	}
}

// Stop closes the socket.
func (e *Emitter) Stop() {
	if e.conn != nil {
		_ = e.conn.Close()
	}
}

// Emit sends data as a single datagram. It reports whether the write
// succeeded; there is no retry, per the component's no-acknowledgement
// contract.
func (e *Emitter) Emit(data []byte) bool {
	if e.conn == nil {
		return false
	}
	if _, err := e.conn.WriteToUDP(data, e.addr); err != nil {
		e.logger.Debug("datagram emit failed", "err", err)
		return false
	}
	return true
}
