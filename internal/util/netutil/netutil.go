// Package netutil provides small net.Addr helpers for addresses the proxy
// builds itself rather than receives from the network stack, such as the
// virtual host a client's Handshake names.
package netutil

import (
	"net"
	"strconv"
)

type addr struct {
	network string
	host    string
	port    uint16
}

func (a *addr) Network() string { return a.network }
func (a *addr) String() string  { return net.JoinHostPort(a.host, strconv.Itoa(int(a.port))) }

// NewAddr builds a synthetic TCP net.Addr from a host and port, used for the
// virtual host a client names in its Handshake packet.
func NewAddr(host string, port uint16) net.Addr {
	return &addr{network: "tcp", host: host, port: port}
}

// Host extracts the host portion of a, falling back to a's full string if
// it isn't in host:port form.
func Host(a net.Addr) string {
	host, _, err := net.SplitHostPort(a.String())
	if err != nil {
		return a.String()
	}
	return host
}
