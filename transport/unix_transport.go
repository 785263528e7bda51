package transport

import (
	"net"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// UnixTransport implements the Transport interface using a Unix domain
// socket. The socket path is fixed at construction; the host and port
// given to Connect only end up in the request's Host header.
type UnixTransport struct {
	path   string
	conn   net.Conn
	logger *zap.Logger
}

// NewUnixTransport creates a new UnixTransport that dials path
func NewUnixTransport(path string, logger *zap.Logger) *UnixTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnixTransport{
		path:   path,
		logger: logger.Named("unix"),
	}
}

// Connect establishes the Unix domain socket connection
func (t *UnixTransport) Connect(host string, port int) error {
	if t.conn != nil {
		return errors.NewTransportError(
			errors.TransportErrorSocketConnectFailure,
			"already connected",
			nil,
		)
	}

	conn, err := net.Dial("unix", t.path)
	if err != nil {
		return errors.NewTransportError(
			errors.TransportErrorSocketConnectFailure,
			"failed to connect to unix socket "+t.path,
			err,
		)
	}

	t.logger.Debug("connected", zap.String("path", t.path), zap.String("host", host), zap.Int("port", port))
	t.conn = conn
	return nil
}

// Write sends data over the Unix domain socket
func (t *UnixTransport) Write(buf []byte) (int, error) {
	return writeConn(t.conn, buf)
}

// Read receives data from the Unix domain socket
func (t *UnixTransport) Read(buf []byte) (int, error) {
	return readConn(t.conn, buf)
}

// Close closes the Unix domain socket
func (t *UnixTransport) Close() error {
	return closeConn(&t.conn)
}
