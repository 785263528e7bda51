//go:build linux

package transport

import (
	"net"
	"syscall"
	"testing"

	"github.com/ijmichel/httpexperiments/errors"
)

// newRingTransport skips the test when the kernel or sandbox refuses to
// set up an io_uring instance.
func newRingTransport(t *testing.T, kind Kind) Transport {
	t.Helper()

	tr, err := New(kind, "", nil)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	return tr
}

func TestUringTransports_Exchange(t *testing.T) {
	reply := "HTTP/1.1 200 OK\r\nContent-Length: 14\r\n\r\nHello from V2!"

	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)

			host, port, cleanup := setupTcpTestServer(t, replyServer(reply))
			defer cleanup()

			exchange(t, tr, host, port, reply)
		})
	}
}

func TestUringTransports_Connect_Failure_ConnectionRefused(t *testing.T) {
	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)
			defer tr.Close()

			err := tr.Connect("127.0.0.1", freePort(t))
			requireTransportError(t, err, errors.TransportErrorSocketConnectFailure)
		})
	}
}

func TestUringTransports_Failure_NoConnection(t *testing.T) {
	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)
			defer tr.Close()

			_, err := tr.Write([]byte("test"))
			requireTransportError(t, err, errors.TransportErrorSocketWriteFailure)

			_, err = tr.Read(make([]byte, 16))
			requireTransportError(t, err, errors.TransportErrorSocketReadFailure)
		})
	}
}

func TestUringTransports_Close_Idempotent(t *testing.T) {
	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)

			if err := tr.Close(); err != nil {
				t.Errorf("First close failed: %v", err)
			}
			if err := tr.Close(); err != nil {
				t.Errorf("Second close failed: %v", err)
			}
		})
	}
}

// connectCandidates runs the candidate loop of a ring transport directly.
func connectCandidates(t *testing.T, tr Transport, addrs []*net.TCPAddr) error {
	t.Helper()

	switch r := tr.(type) {
	case *UringTransport:
		return r.connectAny(addrs, "test")
	case *UringTransportV2:
		return r.connectAny(addrs, "test")
	}
	t.Fatalf("Unexpected transport %T", tr)
	return nil
}

func TestUringTransports_Connect_SkipsFailedSocket(t *testing.T) {
	reply := "HTTP/1.1 204 No Content\r\n\r\n"

	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)
			defer tr.Close()

			host, port, cleanup := setupTcpTestServer(t, replyServer(reply))
			defer cleanup()

			calls := 0
			openSocket = func(addr *net.TCPAddr) (int, syscall.Sockaddr, error) {
				calls++
				if calls == 1 {
					return -1, nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "address family not supported", syscall.EAFNOSUPPORT)
				}
				return newSocket(addr)
			}
			defer func() { openSocket = newSocket }()

			good := &net.TCPAddr{IP: net.ParseIP(host), Port: port}
			unsupported := &net.TCPAddr{IP: net.ParseIP("::1"), Port: port}

			if err := connectCandidates(t, tr, []*net.TCPAddr{unsupported, good}); err != nil {
				t.Fatalf("Expected fallback to second candidate, got %v", err)
			}
			if calls != 2 {
				t.Errorf("Expected 2 socket attempts, got %d", calls)
			}

			if _, err := tr.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			buf := make([]byte, 64)
			n, err := tr.Read(buf)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if string(buf[:n]) != reply {
				t.Errorf("Expected %q, got %q", reply, string(buf[:n]))
			}
		})
	}
}

func TestUringTransports_Connect_AllCandidatesFail(t *testing.T) {
	for _, kind := range []Kind{KindUring, KindUringV2} {
		t.Run(string(kind), func(t *testing.T) {
			tr := newRingTransport(t, kind)
			defer tr.Close()

			openSocket = func(*net.TCPAddr) (int, syscall.Sockaddr, error) {
				return -1, nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "no sockets", syscall.EMFILE)
			}
			defer func() { openSocket = newSocket }()

			addrs := []*net.TCPAddr{
				{IP: net.ParseIP("127.0.0.1"), Port: 1},
				{IP: net.ParseIP("127.0.0.1"), Port: 2},
			}
			err := connectCandidates(t, tr, addrs)
			requireTransportError(t, err, errors.TransportErrorSocketConnectFailure)
		})
	}
}
