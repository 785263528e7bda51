//go:build linux

package transport

import (
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/godzie44/go-uring/uring"
	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// UringTransportV2 implements Transport using godzie44/go-uring. Connect is
// a blocking syscall; reads and writes go through the ring.
type UringTransportV2 struct {
	ring   *uring.Ring
	file   *os.File
	logger *zap.Logger
}

// NewUringTransportV2 creates a new TCP transport with io_uring (v2 using godzie44/go-uring)
func NewUringTransportV2(logger *zap.Logger) (*UringTransportV2, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ring, err := uring.New(ringEntries)
	if err != nil {
		return nil, errors.NewTransportError(
			errors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransportV2{
		ring:   ring,
		logger: logger.Named("uring-v2"),
	}, nil
}

// Connect tries each resolved address of host in turn
func (t *UringTransportV2) Connect(host string, port int) error {
	if t.ring == nil {
		return errors.NewTransportError(errors.TransportErrorIoUringInit, "transport already closed", nil)
	}
	if t.file != nil {
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
func (t *UringTransportV2) connectAny(addrs []*net.TCPAddr, target string) error {
	var lastErr error
	for _, addr := range addrs {
		fd, sa, err := openSocket(addr)
		if err != nil {
			t.logger.Debug("socket creation failed", zap.Stringer("addr", addr), zap.Error(err))
			lastErr = err
			continue
		}
		if err := syscall.Connect(fd, sa); err != nil {
			syscall.Close(fd)
			t.logger.Debug("connect attempt failed", zap.Stringer("addr", addr), zap.Error(err))
			lastErr = err
			continue
		}
		t.file = os.NewFile(uintptr(fd), "socket")
		return nil
	}

	return errors.NewTransportError(
		errors.TransportErrorSocketConnectFailure,
		"failed to connect to "+target,
		lastErr,
	)
}

// complete queues op, submits it and waits for its completion.
func (t *UringTransportV2) complete(op uring.Operation, what string) (int, error) {
	if err := t.ring.QueueSQE(op, 0, 0); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to queue "+what+" request",
			err,
		)
	}

	if _, err := t.ring.Submit(); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit "+what+" request",
			err,
		)
	}

	cqe, err := t.ring.WaitCQEvents(1)
	if err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to wait for "+what+" completion",
			err,
		)
	}
	defer t.ring.SeenCQE(cqe)

	if err := cqe.Error(); err != nil {
		return 0, err
	}
	return int(cqe.Res), nil
}

// Write sends the whole buffer, resubmitting after short writes
func (t *UringTransportV2) Write(buf []byte) (int, error) {
	if t.file == nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	totalWritten := 0
	for totalWritten < len(buf) {
		n, err := t.complete(uring.Write(t.file.Fd(), buf[totalWritten:], 0), "write")
		if err != nil {
			if _, ok := err.(*errors.HttpError); ok {
				return totalWritten, err
			}
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"write operation failed",
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
func (t *UringTransportV2) Read(buf []byte) (int, error) {
	if t.file == nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

	n, err := t.complete(uring.Read(t.file.Fd(), buf, 0), "read")
	if err != nil {
		if _, ok := err.(*errors.HttpError); ok {
			return 0, err
		}
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"read operation failed",
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
func (t *UringTransportV2) Close() error {
	var closeErr error
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			closeErr = errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"failed to close socket",
				err,
			)
		}
		t.file = nil
	}
	if t.ring != nil {
		t.ring.Close()
		t.ring = nil
	}
	return closeErr
}
