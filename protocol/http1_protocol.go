package protocol

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
	"github.com/ijmichel/httpexperiments/transport"
)

// DefaultReadBufferSize is the size of a single transport read.
const DefaultReadBufferSize = 4096

// Http1Options tunes an Http1Protocol. Zero values select defaults.
type Http1Options struct {
	ReadBufferSize int
	MaxHeaderBytes int
	// OnChunk is called after every chunk with the body bytes received so
	// far and the announced Content-Length (-1 when unknown).
	OnChunk func(received, total int64)
}

// Http1Protocol implements HTTP/1.1 protocol over a transport
type Http1Protocol struct {
	transport      transport.Transport
	readBuf        []byte
	maxHeaderBytes int
	onChunk        func(received, total int64)
	logger         *zap.Logger
}

// NewHttp1Protocol creates a new HTTP/1.1 protocol handler
func NewHttp1Protocol(t transport.Transport, opts Http1Options, logger *zap.Logger) *Http1Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}
	return &Http1Protocol{
		transport:      t,
		readBuf:        make([]byte, size),
		maxHeaderBytes: opts.MaxHeaderBytes,
		onChunk:        opts.OnChunk,
		logger:         logger.Named("http1"),
	}
}

// Connect establishes a connection to the specified host and port
func (p *Http1Protocol) Connect(host string, port int) error {
	return p.transport.Connect(host, port)
}

// Disconnect closes the connection
func (p *Http1Protocol) Disconnect() error {
	return p.transport.Close()
}

// PerformRequest writes req and reads one response. The connection is used
// for this single exchange only.
func (p *Http1Protocol) PerformRequest(req *HttpRequest) (*HttpResponse, error) {
	wire, err := BuildRequest(req)
	if err != nil {
		return nil, err
	}

	if _, err := p.transport.Write(wire); err != nil {
		return nil, err
	}
	p.logger.Debug("request sent", zap.String("path", req.Path), zap.Int("bytes", len(wire)))

	return p.readResponse()
}

// readResponse feeds chunks to an Assembler until end-of-stream, or until
// the announced Content-Length has been received.
func (p *Http1Protocol) readResponse() (*HttpResponse, error) {
	asm := NewAssembler(p.maxHeaderBytes)
	chunks := 0

	for {
		n, err := p.transport.Read(p.readBuf)
		if n > 0 {
			chunks++
			if cerr := asm.Consume(p.readBuf[:n]); cerr != nil {
				return nil, cerr
			}
			p.logger.Debug("chunk received",
				zap.Int("bytes", n),
				zap.Bool("header_complete", asm.HeaderComplete()),
				zap.Int("body_bytes", asm.BodyLen()))
			if p.onChunk != nil && asm.HeaderComplete() {
				p.onChunk(int64(asm.BodyLen()), asm.ContentLength())
			}
		}

		if err != nil {
			if stderrors.Is(err, errors.ErrConnectionClosed) {
				break
			}
			return nil, err
		}
		if n == 0 || asm.Complete() {
			break
		}
	}

	p.logger.Debug("end of response", zap.Int("chunks", chunks))
	return asm.Finalize()
}
