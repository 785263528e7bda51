package transport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

// Transport defines the interface for network transports
type Transport interface {
	// Connect establishes a connection to the specified host and port
	Connect(host string, port int) error

	// Write sends the whole buffer over the connection
	// Returns the number of bytes written
	Write(buf []byte) (int, error)

	// Read receives the next chunk from the connection
	// End-of-stream is reported as a ConnectionClosed transport error
	Read(buf []byte) (int, error)

	// Close closes the connection and releases any kernel resources.
	// It is safe to call more than once.
	Close() error
}

// Kind names a Transport implementation.
type Kind string

const (
	KindTCP     Kind = "tcp"
	KindUnix    Kind = "unix"
	KindUring   Kind = "uring"
	KindUringV2 Kind = "uring-v2"
)

// Kinds lists every selectable transport.
func Kinds() []Kind {
	return []Kind{KindTCP, KindUnix, KindUring, KindUringV2}
}

// New creates the transport named by kind. unixSocket is only used by
// KindUnix.
func New(kind Kind, unixSocket string, logger *zap.Logger) (Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch kind {
	case KindTCP:
		return NewTcpTransport(logger), nil
	case KindUnix:
		if unixSocket == "" {
			return nil, errors.NewInvalidArgumentError("unix transport requires a socket path")
		}
		return NewUnixTransport(unixSocket, logger), nil
	case KindUring, KindUringV2:
		return newUringTransport(kind, logger)
	default:
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown transport %q", kind))
	}
}
