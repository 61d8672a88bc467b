package server

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sirupsen/logrus"

	"github.com/Erigara/mv"
	"github.com/Erigara/mv/cmd/mvd/config"
)

const defaultConcurrentRequests = 128

type connection interface {
	net.Conn
	CloseRead() error
	CloseWrite() error
}

// Server hosts one storage shared by every connection. Each client
// owns at most one block and one transaction on it; reads outside any
// scope go through pinned views and never block each other.
type Server struct {
	store     *mv.Storage[string, []byte]
	netLogger *logrus.Logger

	clientId     uint64
	clients      map[uint64]*Client
	concurrents  int
	shutdownWait time.Duration
	disconnected chan uint64

	incomings chan connection
	listeners []*listener

	signalc      chan os.Signal
	shuttingDown bool
}

func Listen(cfg *config.Config) (*Server, error) {
	netLogger := logrus.New()
	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		netLogger.Level = level
	}

	store := mv.New[string, []byte](&mv.Options{
		HistoryDepth: cfg.HistoryDepth,
		WaitWriter:   cfg.WaitWriter,
	})

	incomings := make(chan connection, 128)
	listeners := make([]*listener, 0, len(cfg.Listens))
	for _, addr := range cfg.Listens {
		l, err := listen(addr, netLogger, incomings)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, err
		}
		listeners = append(listeners, l)
	}

	concurrents := cfg.ConcurrentRequests
	if concurrents <= 0 {
		concurrents = defaultConcurrentRequests
	}

	sigc := make(chan os.Signal, 8)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	return &Server{
		store:        store,
		disconnected: make(chan uint64, 128),
		incomings:    incomings,
		clients:      make(map[uint64]*Client),
		concurrents:  concurrents,
		shutdownWait: time.Duration(cfg.ShutdownTimeout),
		listeners:    listeners,
		netLogger:    netLogger,
		signalc:      sigc,
	}, nil
}

func (s *Server) Serve() {
	for _, l := range s.listeners {
		go l.Serve()
	}

	incomings := s.incomings
	for {
		select {
		case conn, ok := <-incomings:
			switch ok {
			case true:
				s.clientId++
				c := NewClient(s.clientId, conn, s.store, s.netLogger, s.disconnected)
				c.Start(s.concurrents)
				s.clients[s.clientId] = c
			case false:
				incomings = nil
				go s.closeClients(s.clients)
				s.clients = nil
			}
		case id, ok := <-s.disconnected:
			switch ok {
			case true:
				delete(s.clients, id)
			case false:
				return
			}
		case sig := <-s.signalc:
			s.handleSignal(sig)
		}
	}
}

func (s *Server) handleSignal(sig os.Signal) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		if s.shuttingDown {
			return
		}
		s.shuttingDown = true
		go s.closeListeners(s.listeners)
	}
}

func (s *Server) closeClients(clients map[uint64]*Client) {
	for _, c := range clients {
		c.Shutdown(s.shutdownWait)
	}
	close(s.disconnected)
}

func (s *Server) closeListeners(listeners []*listener) {
	for _, l := range listeners {
		l.Close()
	}
	close(s.incomings)
}
