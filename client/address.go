package client

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrBadAddress is returned when parsing a malformed peer address.
var ErrBadAddress = errors.New("malformed peer address")

// PeerAddress identifies a peer by IPv4 address and TCP port. It is a value
// type: two addresses are the same peer exactly when they compare equal. The
// candidate and cache collections hold few enough entries that lookups are
// plain linear scans keyed on this equality.
type PeerAddress struct {
	IP   [4]byte
	Port uint16
}

// ParsePeerAddress parses an "ip:port" string into a PeerAddress. Only
// literal IPv4 addresses are accepted; peers volunteer each other by address,
// not by name.
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("%w %q: %s", ErrBadAddress, s, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return PeerAddress{}, fmt.Errorf("%w %q: not an IP literal", ErrBadAddress, s)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return PeerAddress{}, fmt.Errorf("%w %q: not IPv4", ErrBadAddress, s)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return PeerAddress{}, fmt.Errorf("%w %q: bad port", ErrBadAddress, s)
	}

	var addr PeerAddress
	copy(addr.IP[:], ip4)
	addr.Port = uint16(port)
	return addr, nil
}

// Zero reports whether the address is the zero value.
func (a PeerAddress) Zero() bool {
	return a == PeerAddress{}
}

// String formats the address as "ip:port", the form peers exchange in
// store_node messages.
func (a PeerAddress) String() string {
	return net.JoinHostPort(
		net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3]).String(),
		strconv.Itoa(int(a.Port)),
	)
}
