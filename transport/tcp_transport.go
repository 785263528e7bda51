package transport

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// TcpTransport implements the Transport interface using blocking TCP
// sockets from the net package
type TcpTransport struct {
	conn   net.Conn
	logger *zap.Logger
}

// NewTcpTransport creates a new TcpTransport instance
func NewTcpTransport(logger *zap.Logger) *TcpTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TcpTransport{
		logger: logger.Named("tcp"),
	}
}

// Connect resolves host and tries each candidate address in turn until one
// accepts the connection
func (t *TcpTransport) Connect(host string, port int) error {
	if t.conn != nil {
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

	var lastErr error
	for _, addr := range addrs {
		conn, err := net.DialTCP("tcp", nil, addr)
		if err != nil {
			t.logger.Debug("connect attempt failed", zap.Stringer("addr", addr), zap.Error(err))
			lastErr = err
			continue
		}

		// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
		if err := conn.SetNoDelay(true); err != nil {
			conn.Close()
			return errors.NewTransportError(
				errors.TransportErrorSocketCreateFailure,
				"failed to set TCP_NODELAY",
				err,
			)
		}

		t.logger.Debug("connected", zap.Stringer("addr", addr))
		t.conn = conn
		return nil
	}

	return errors.NewTransportError(
		errors.TransportErrorSocketConnectFailure,
		fmt.Sprintf("failed to connect to %s:%d", host, port),
		lastErr,
	)
}

// Write sends data over the TCP connection
func (t *TcpTransport) Write(buf []byte) (int, error) {
	return writeConn(t.conn, buf)
}

// Read receives data from the TCP connection
func (t *TcpTransport) Read(buf []byte) (int, error) {
	return readConn(t.conn, buf)
}

// Close closes the TCP connection
func (t *TcpTransport) Close() error {
	return closeConn(&t.conn)
}

// readConn maps net.Conn reads onto transport errors. A read may return data
// together with end-of-stream.
func readConn(conn net.Conn, buf []byte) (int, error) {
	if conn == nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

	n, err := conn.Read(buf)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
	}

	return n, nil
}

func writeConn(conn net.Conn, buf []byte) (int, error) {
	if conn == nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	n, err := conn.Write(buf)
	if err != nil {
		if stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, syscall.ECONNRESET) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed during write", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

func closeConn(conn *net.Conn) error {
	if *conn == nil {
		return nil // Idempotent close
	}

	err := (*conn).Close()
	*conn = nil
	if err != nil {
		return errors.NewTransportError(errors.TransportErrorConnectionClosed, "failed to close socket", err)
	}
	return nil
}
