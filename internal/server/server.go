package server

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/nerrad567/loxgate/internal/infrastructure/config"
)

// readBufferSize is the maximum datagram size accepted per packet.
const readBufferSize = 4096

// Handler receives one packet's text per datagram.
type Handler interface {
	HandlePacket(line string) map[string]bool
}

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Server binds the configured UDP ports and feeds datagrams to the
// packet handler.
type Server struct {
	ip      string
	ports   []int
	handler Handler
	logger  Logger

	conns []*net.UDPConn
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// New builds a server from the UDP input configuration. logger may be
// nil.
func New(cfg config.UDPConfig, handler Handler, logger Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Server{
		ip:      cfg.IP,
		ports:   cfg.Ports,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start binds every configured port and begins serving. If any bind
// fails, already-bound ports are released and the error is returned.
func (s *Server) Start() error {
	for _, port := range s.ports {
		addr := &net.UDPAddr{IP: net.ParseIP(s.ip), Port: port}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			s.closeConns()
			return fmt.Errorf("binding udp %s:%d: %w", s.ip, port, err)
		}
		s.conns = append(s.conns, conn)
		s.logger.Info("udp listener started", "addr", conn.LocalAddr().String())

		s.wg.Add(1)
		go s.serve(conn)
	}
	return nil
}

// Addrs returns the bound local addresses, in port order.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.conns))
	for _, conn := range s.conns {
		addrs = append(addrs, conn.LocalAddr())
	}
	return addrs
}

// Close stops all listeners and waits for the serve goroutines to exit.
// Safe to call repeatedly.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.done)
		s.closeConns()
		s.wg.Wait()
		s.logger.Info("udp listeners stopped")
	})
}

func (s *Server) closeConns() {
	for _, conn := range s.conns {
		conn.Close() //nolint:errcheck // shutdown path
	}
}

func (s *Server) serve(conn *net.UDPConn) {
	defer s.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("udp read failed", "addr", conn.LocalAddr().String(), "error", err)
			continue
		}

		packet := buf[:n]

		// Receipt echo: the controller side uses it to confirm delivery.
		if _, err := conn.WriteToUDP(packet, remote); err != nil {
			s.logger.Warn("udp echo failed", "remote", remote.String(), "error", err)
		}

		s.handler.HandlePacket(string(packet))
	}
}
