package client

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/config"
	"github.com/ijmichel/httpexperiments/protocol"
	"github.com/ijmichel/httpexperiments/sink"
	"github.com/ijmichel/httpexperiments/transport"
	"github.com/ijmichel/httpexperiments/uri"
)

// TransportFactory creates the transport for one request cycle.
type TransportFactory func() (transport.Transport, error)

// Option customizes an HttpClient.
type Option func(*HttpClient)

// WithTransportFactory replaces the transport selected by the config.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *HttpClient) {
		c.newTransport = f
	}
}

// WithProgress installs a callback receiving body progress after each chunk.
func WithProgress(fn func(received, total int64)) Option {
	return func(c *HttpClient) {
		c.onChunk = fn
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *HttpClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// HttpClient performs single GET request cycles: one URL, one connection,
// one response, one persisted result.
type HttpClient struct {
	cfg          *config.Config
	sink         sink.Sink
	newTransport TransportFactory
	onChunk      func(received, total int64)
	logger       *zap.Logger
}

// NewHttpClient creates a client for cfg that persists results to s.
func NewHttpClient(cfg *config.Config, s sink.Sink, opts ...Option) *HttpClient {
	c := &HttpClient{
		cfg:    cfg,
		sink:   s,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("client")
	if c.newTransport == nil {
		c.newTransport = func() (transport.Transport, error) {
			return transport.New(cfg.Transport, cfg.UnixSocket, c.logger)
		}
	}
	return c
}

// Fetch parses rawURL, connects, sends a GET and returns the reassembled
// response. A non-2xx status is not an error.
func (c *HttpClient) Fetch(rawURL string) (*protocol.HttpResponse, error) {
	return c.fetch(rawURL, c.requestLogger())
}

// Run fetches rawURL and writes exactly one result to destination: the body
// for a parsed response, or the outcome's marker otherwise. The returned
// error joins the fetch failure and the sink failure, whichever occurred.
func (c *HttpClient) Run(rawURL, destination string) (Outcome, error) {
	logger := c.requestLogger()

	resp, err := c.fetch(rawURL, logger)
	outcome := Classify(resp, err)

	data := []byte(outcome.Marker())
	if outcome == OutcomeOK {
		data = resp.Body
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			logger.Info("non-success status", zap.Int("status", resp.StatusCode))
		}
	}

	if err != nil {
		logger.Warn("request failed", zap.Stringer("outcome", outcome), zap.Error(err))
	}

	if werr := c.sink.Write(destination, data); werr != nil {
		logger.Error("failed to persist result", zap.String("destination", destination), zap.Error(werr))
		return outcome, stderrors.Join(err, werr)
	}
	logger.Info("result persisted",
		zap.Stringer("outcome", outcome),
		zap.String("destination", destination),
		zap.Int("bytes", len(data)))

	return outcome, err
}

func (c *HttpClient) requestLogger() *zap.Logger {
	if id := NewIdentifier(c.cfg.Identifier); id != "" {
		return c.logger.With(zap.String("request_id", id))
	}
	return c.logger
}

func (c *HttpClient) fetch(rawURL string, logger *zap.Logger) (*protocol.HttpResponse, error) {
	components, err := uri.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed url",
		zap.String("host", components.Host),
		zap.Int("port", components.Port),
		zap.String("path", components.Path))

	// Reject anything that cannot be sent before touching the network.
	req := protocol.NewGetRequest(components, c.cfg.Connection)
	if _, err := protocol.BuildRequest(req); err != nil {
		return nil, err
	}

	t, err := c.newTransport()
	if err != nil {
		return nil, err
	}

	proto := protocol.NewHttp1Protocol(t, protocol.Http1Options{
		ReadBufferSize: c.cfg.BufferSize,
		MaxHeaderBytes: c.cfg.MaxHeaderBytes,
		OnChunk:        c.onChunk,
	}, logger)

	disconnect := func() {
		if derr := proto.Disconnect(); derr != nil {
			logger.Debug("disconnect failed", zap.Error(derr))
		}
	}

	if err := proto.Connect(components.Host, components.Port); err != nil {
		disconnect()
		return nil, err
	}
	defer disconnect()

	resp, err := proto.PerformRequest(req)
	if err != nil {
		return nil, err
	}

	if resp.Overrun {
		logger.Warn("body longer than Content-Length",
			zap.Int64("content_length", resp.ContentLength),
			zap.Int("body_bytes", len(resp.Body)))
	}
	logger.Debug("response received",
		zap.String("status_line", resp.StatusLine),
		zap.Int("body_bytes", len(resp.Body)))

	return resp, nil
}
