//go:build linux

package transport

import (
	"fmt"
	"net"
	"syscall"

	"github.com/iceber/iouring-go"
	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// UringTransport implements Transport using iceber/iouring-go for async I/O.
// Connect, send and recv are all submitted to the ring and awaited.
type UringTransport struct {
	iour   *iouring.IOURing
	fd     int
	logger *zap.Logger
}

// NewUringTransport creates a new TCP transport with io_uring
func NewUringTransport(logger *zap.Logger) (*UringTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	iour, err := iouring.New(ringEntries)
	if err != nil {
		return nil, errors.NewTransportError(
			errors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransport{
		iour:   iour,
		fd:     -1,
		logger: logger.Named("uring"),
	}, nil
}

// Connect tries each resolved address of host in turn
func (t *UringTransport) Connect(host string, port int) error {
	if t.iour == nil {
		return errors.NewTransportError(errors.TransportErrorIoUringInit, "transport already closed", nil)
	}
	if t.fd >= 0 {
		return errors.NewTransportError(
			errors.TransportErrorSocketConnectFailure,
			"already connected",
			nil,
		)
	}

	addrs, err := resolveCandidates(host, port)
	if err != nil {
		return err
	}
	return t.connectAny(addrs, fmt.Sprintf("%s:%d", host, port))
}

// connectAny connects to the first candidate that accepts.
func (t *UringTransport) connectAny(addrs []*net.TCPAddr, target string) error {
	var lastErr error
	for _, addr := range addrs {
		fd, err := t.connect(addr)
		if err != nil {
			t.logger.Debug("connect attempt failed", zap.Stringer("addr", addr), zap.Error(err))
			lastErr = err
			continue
		}
		t.fd = fd
		return nil
	}

	return errors.NewTransportError(
		errors.TransportErrorSocketConnectFailure,
		"failed to connect to "+target,
		lastErr,
	)
}

func (t *UringTransport) connect(addr *net.TCPAddr) (int, error) {
	fd, sa, err := openSocket(addr)
	if err != nil {
		return -1, err
	}

	req, err := iouring.Connect(fd, sa)
	if err != nil {
		syscall.Close(fd)
		return -1, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to prepare connect request",
			err,
		)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(req, ch); err != nil {
		syscall.Close(fd)
		return -1, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit connect request",
			err,
		)
	}

	result := <-ch
	if _, err := result.ReturnInt(); err != nil {
		syscall.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Write sends the whole buffer, resubmitting after short sends
func (t *UringTransport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	totalWritten := 0
	for totalWritten < len(buf) {
		ch := make(chan iouring.Result, 1)
		if _, err := t.iour.SubmitRequest(iouring.Send(t.fd, buf[totalWritten:], 0), ch); err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorIoUringSubmit,
				"failed to submit write request",
				err,
			)
		}

		result := <-ch
		n, err := result.ReturnInt()
		if err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"write failed",
				err,
			)
		}
		if n <= 0 {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"connection closed during write",
				nil,
			)
		}

		totalWritten += n
	}

	return totalWritten, nil
}

// Read receives one chunk through the ring
func (t *UringTransport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(iouring.Recv(t.fd, buf, 0), ch); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit read request",
			err,
		)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"read failed",
			err,
		)
	}
	if n == 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed by peer",
			nil,
		)
	}

	return n, nil
}

// Close closes the socket and the ring
func (t *UringTransport) Close() error {
	var closeErr error
	if t.fd >= 0 {
		if err := syscall.Close(t.fd); err != nil {
			closeErr = errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"failed to close socket",
				err,
			)
		}
		t.fd = -1
	}
	if t.iour != nil {
		t.iour.Close()
		t.iour = nil
	}
	return closeErr
}
