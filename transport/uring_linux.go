//go:build linux

package transport

import (
	"net"
	"syscall"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// ringEntries is the submission queue depth of every ring.
const ringEntries = 32

func newUringTransport(kind Kind, logger *zap.Logger) (Transport, error) {
	if kind == KindUringV2 {
		return NewUringTransportV2(logger)
	}
	return NewUringTransport(logger)
}

// openSocket is replaced in tests to simulate socket creation failures.
var openSocket = newSocket

// newSocket creates a TCP socket matching addr's family with TCP_NODELAY set.
func newSocket(addr *net.TCPAddr) (int, syscall.Sockaddr, error) {
	var (
		family int
		sa     syscall.Sockaddr
	)
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa4 := &syscall.SockaddrInet4{Port: addr.Port}
		copy(sa4.Addr[:], ip4)
		family, sa = syscall.AF_INET, sa4
	} else {
		sa6 := &syscall.SockaddrInet6{Port: addr.Port}
		copy(sa6.Addr[:], addr.IP.To16())
		if addr.Zone != "" {
			if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
				sa6.ZoneId = uint32(ifi.Index)
			}
		}
		family, sa = syscall.AF_INET6, sa6
	}

	fd, err := syscall.Socket(family, syscall.SOCK_STREAM|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, nil, errors.NewTransportError(
			errors.TransportErrorSocketCreateFailure,
			"failed to create socket",
			err,
		)
	}

	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
		syscall.Close(fd)
		return -1, nil, errors.NewTransportError(
			errors.TransportErrorSocketCreateFailure,
			"failed to set TCP_NODELAY",
			err,
		)
	}

	return fd, sa, nil
}
