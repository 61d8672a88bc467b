package client

import (
	"net"
	"strings"
	"time"
)

type ServerAddressError struct {
	Addr string
}

func (e *ServerAddressError) Error() string {
	return "mv: invalid server address: " + e.Addr
}

// dial accepts plain host:port addresses and network://address forms,
// eg. "tcp://127.0.0.1:6344" or "unix:///var/run/mvd.sock".
func dial(addr string, timeout time.Duration) (net.Conn, error) {
	var (
		network string
		address string
	)
	parts := strings.Split(addr, "://")
	switch len(parts) {
	case 1:
		network = "tcp"
		address = parts[0]
	case 2:
		network = parts[0]
		address = parts[1]
	default:
		return nil, &ServerAddressError{addr}
	}
	if timeout <= 0 {
		return net.Dial(network, address)
	}
	return net.DialTimeout(network, address, timeout)
}
