// Package config holds the settings of one fetch, populated from command
// line flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ijmichel/httpexperiments/errors"
	"github.com/ijmichel/httpexperiments/protocol"
	"github.com/ijmichel/httpexperiments/sink"
	"github.com/ijmichel/httpexperiments/transport"
)

type IdentifierType string

const (
	IdentifierNone IdentifierType = "none"
	IdentifierUUID IdentifierType = "uuid"
	IdentifierULID IdentifierType = "ulid"
)

// Config describes one request cycle.
type Config struct {
	URL            string
	Output         string
	Transport      transport.Kind
	UnixSocket     string
	Connection     string
	BufferSize     int
	MaxHeaderBytes int
	Compression    sink.CompressionType
	Identifier     IdentifierType
	Progress       bool
	Verbose        bool
	JSONLogs       bool
}

// Default returns the configuration used when no flags are given.
func Default() *Config {
	return &Config{
		Output:         "output",
		Transport:      transport.KindTCP,
		Connection:     protocol.ConnectionClose,
		BufferSize:     protocol.DefaultReadBufferSize,
		MaxHeaderBytes: protocol.DefaultMaxHeaderBytes,
		Compression:    sink.CompressionNone,
		Identifier:     IdentifierULID,
	}
}

// Parse reads flags from args (without the program name). Exactly one
// positional argument, the URL, is required.
func Parse(name string, args []string, output io.Writer) (*Config, error) {
	cfg := Default()

	var transportKind, compression, identifier string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] URL\n", name)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Output, "o", cfg.Output, "destination file for the body or outcome marker")
	fs.StringVar(&transportKind, "transport", string(cfg.Transport), "transport: "+joinKinds())
	fs.StringVar(&cfg.UnixSocket, "unix-socket", "", "unix socket path (unix transport)")
	fs.StringVar(&cfg.Connection, "connection", cfg.Connection, "Connection header value: close or keep-alive")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "bytes requested per transport read")
	fs.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", cfg.MaxHeaderBytes, "largest accepted response header block")
	fs.StringVar(&compression, "compress", "none", "encoding of the written output: none, gzip, deflate, br, snappy, lz4")
	fs.StringVar(&identifier, "id", string(cfg.Identifier), "request identifier: ulid, uuid or none")
	fs.BoolVar(&cfg.Progress, "progress", false, "draw download progress on stderr")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log with the development logger")
	fs.BoolVar(&cfg.JSONLogs, "json", false, "log JSON with the production logger")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("expected exactly one URL, got %d arguments", fs.NArg()))
	}

	cfg.URL = fs.Arg(0)
	cfg.Transport = transport.Kind(transportKind)
	cfg.Identifier = IdentifierType(identifier)
	if compression != "none" {
		cfg.Compression = sink.CompressionType(compression)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values; it does not parse the URL.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.NewInvalidArgumentError("output destination must not be empty")
	}
	if !slices.Contains(transport.Kinds(), c.Transport) {
		return errors.NewInvalidArgumentError(fmt.Sprintf("unknown transport %q", c.Transport))
	}
	if c.Transport == transport.KindUnix && c.UnixSocket == "" {
		return errors.NewInvalidArgumentError("unix transport requires -unix-socket")
	}
	if c.Connection != protocol.ConnectionClose && c.Connection != protocol.ConnectionKeepAlive {
		return errors.NewInvalidArgumentError(fmt.Sprintf("connection must be %q or %q, got %q",
			protocol.ConnectionClose, protocol.ConnectionKeepAlive, c.Connection))
	}
	if c.BufferSize <= 0 {
		return errors.NewInvalidArgumentError("buffer size must be positive")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.NewInvalidArgumentError("max header bytes must be positive")
	}
	if !slices.Contains(sink.CompressionTypes(), c.Compression) {
		return errors.NewInvalidArgumentError(fmt.Sprintf("unsupported compression %q", c.Compression))
	}
	switch c.Identifier {
	case IdentifierNone, IdentifierUUID, IdentifierULID:
	default:
		return errors.NewInvalidArgumentError(fmt.Sprintf("unknown identifier type %q", c.Identifier))
	}
	return nil
}

func joinKinds() string {
	kinds := make([]string, 0, len(transport.Kinds()))
	for _, k := range transport.Kinds() {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}
