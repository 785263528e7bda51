package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorURI
	ErrorTransport
	ErrorProtocol
	ErrorInvalidArgument
	ErrorSink
)

func (t ErrorType) String() string {
	switch t {
	case ErrorURI:
		return "URI error"
	case ErrorTransport:
		return "Transport error"
	case ErrorProtocol:
		return "Protocol error"
	case ErrorInvalidArgument:
		return "Invalid argument"
	case ErrorSink:
		return "Sink error"
	default:
		return "Unknown error"
	}
}

// URIError represents failures while decomposing a URL
type URIError int

const (
	URIErrorNone URIError = iota
	URIErrorMalformed
	URIErrorInvalidPort
	URIErrorUnsupportedProtocol
)

func (e URIError) String() string {
	switch e {
	case URIErrorMalformed:
		return "malformed URI"
	case URIErrorInvalidPort:
		return "invalid port"
	case URIErrorUnsupportedProtocol:
		return "unsupported protocol"
	default:
		return fmt.Sprintf("uri error %d", int(e))
	}
}

// TransportError represents transport-layer specific errors
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorSocketCreateFailure
	TransportErrorSocketConnectFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorConnectionClosed
	TransportErrorDnsFailure
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorSocketCreateFailure:
		return "socket creation failed"
	case TransportErrorSocketConnectFailure:
		return "socket connection failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorDnsFailure:
		return "DNS lookup failed"
	case TransportErrorIoUringInit:
		return "io_uring initialization failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submission failed"
	default:
		return fmt.Sprintf("transport error %d", int(e))
	}
}

// ProtocolError represents protocol-layer specific errors
type ProtocolError int

const (
	ProtocolErrorNone ProtocolError = iota
	ProtocolErrorInvalidStatusLine
	ProtocolErrorTruncatedHeader
	ProtocolErrorMessageTooLarge
)

func (e ProtocolError) String() string {
	switch e {
	case ProtocolErrorInvalidStatusLine:
		return "malformed status line"
	case ProtocolErrorTruncatedHeader:
		return "truncated header"
	case ProtocolErrorMessageTooLarge:
		return "header block too large"
	default:
		return fmt.Sprintf("protocol error %d", int(e))
	}
}

// SinkError represents failures while persisting a result
type SinkError int

const (
	SinkErrorNone SinkError = iota
	SinkErrorWrite
	SinkErrorEncoding
)

func (e SinkError) String() string {
	switch e {
	case SinkErrorWrite:
		return "write failed"
	case SinkErrorEncoding:
		return "encoding failed"
	default:
		return fmt.Sprintf("sink error %d", int(e))
	}
}

// HttpError is the main error type for the HTTP client
type HttpError struct {
	Type          ErrorType
	URIErr        URIError
	TransportErr  TransportError
	ProtocolErr   ProtocolError
	SinkErr       SinkError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *HttpError) Error() string {
	if e == nil {
		return "no error"
	}

	var typeStr string
	switch e.Type {
	case ErrorURI:
		typeStr = fmt.Sprintf("%s (%s)", e.Type, e.URIErr)
	case ErrorTransport:
		typeStr = fmt.Sprintf("%s (%s)", e.Type, e.TransportErr)
	case ErrorProtocol:
		typeStr = fmt.Sprintf("%s (%s)", e.Type, e.ProtocolErr)
	case ErrorSink:
		typeStr = fmt.Sprintf("%s (%s)", e.Type, e.SinkErr)
	default:
		typeStr = e.Type.String()
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *HttpError) Unwrap() error {
	return e.UnderlyingErr
}

// Is reports whether target is an *HttpError of the same type and code.
// Message and cause are not compared, so the Err* values below can be used
// with errors.Is.
func (e *HttpError) Is(target error) bool {
	t, ok := target.(*HttpError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Type == t.Type &&
		e.URIErr == t.URIErr &&
		e.TransportErr == t.TransportErr &&
		e.ProtocolErr == t.ProtocolErr &&
		e.SinkErr == t.SinkErr
}

var (
	ErrMalformedURI        = &HttpError{Type: ErrorURI, URIErr: URIErrorMalformed}
	ErrInvalidPort         = &HttpError{Type: ErrorURI, URIErr: URIErrorInvalidPort}
	ErrUnsupportedProtocol = &HttpError{Type: ErrorURI, URIErr: URIErrorUnsupportedProtocol}
	ErrConnectionClosed    = &HttpError{Type: ErrorTransport, TransportErr: TransportErrorConnectionClosed}
	ErrMalformedStatusLine = &HttpError{Type: ErrorProtocol, ProtocolErr: ProtocolErrorInvalidStatusLine}
	ErrTruncatedHeader     = &HttpError{Type: ErrorProtocol, ProtocolErr: ProtocolErrorTruncatedHeader}
	ErrHeaderTooLarge      = &HttpError{Type: ErrorProtocol, ProtocolErr: ProtocolErrorMessageTooLarge}
)

// NewURIError creates a new URI error
func NewURIError(err URIError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorURI,
		URIErr:        err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewProtocolError creates a new protocol error
func NewProtocolError(err ProtocolError, message string) *HttpError {
	return &HttpError{
		Type:        ErrorProtocol,
		ProtocolErr: err,
		Message:     message,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// NewSinkError creates a new sink error
func NewSinkError(err SinkError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorSink,
		SinkErr:       err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// IsConnectFailure reports whether err happened while establishing the
// connection (resolution, socket setup or connect).
func IsConnectFailure(err error) bool {
	he, ok := asHttpError(err)
	if !ok || he.Type != ErrorTransport {
		return false
	}
	switch he.TransportErr {
	case TransportErrorDnsFailure,
		TransportErrorSocketCreateFailure,
		TransportErrorSocketConnectFailure,
		TransportErrorIoUringInit:
		return true
	}
	return false
}

// IsReadFailure reports whether err is a transport failure on an
// established connection. End-of-stream is not a failure.
func IsReadFailure(err error) bool {
	he, ok := asHttpError(err)
	if !ok || he.Type != ErrorTransport {
		return false
	}
	switch he.TransportErr {
	case TransportErrorSocketReadFailure,
		TransportErrorSocketWriteFailure,
		TransportErrorIoUringSubmit:
		return true
	}
	return false
}

func asHttpError(err error) (*HttpError, bool) {
	var he *HttpError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}
