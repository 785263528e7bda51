package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ijmichel/httpexperiments/errors"
)

var headerSeparator = []byte("\r\n\r\n")

const (
	contentLengthKey = "Content-Length"

	// DefaultMaxHeaderBytes bounds the header block, terminator included.
	DefaultMaxHeaderBytes = 64 * 1024
)

type assemblerState int

const (
	stateSeekingHeader assemblerState = iota
	stateInBody
)

// Assembler rebuilds one response from the chunks a transport delivers.
// Chunks must be passed to Consume in arrival order. The chunk slice is
// copied, so the caller may reuse its read buffer immediately.
//
// An Assembler serves exactly one response and is not safe for concurrent
// use.
type Assembler struct {
	state          assemblerState
	maxHeaderBytes int

	// pending holds header candidate bytes until the terminator is found.
	pending []byte

	statusLine    string
	proto         string
	statusCode    int
	statusMessage string
	headers       []HttpHeader
	contentLength int64
	headerBytes   int
	body          []byte

	err error
}

// NewAssembler returns an Assembler in the header seeking state. A
// non-positive maxHeaderBytes selects DefaultMaxHeaderBytes.
func NewAssembler(maxHeaderBytes int) *Assembler {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	return &Assembler{
		maxHeaderBytes: maxHeaderBytes,
		contentLength:  -1,
	}
}

// Consume feeds the next chunk. Once an error is returned the Assembler
// ignores further input and keeps returning that error.
func (a *Assembler) Consume(chunk []byte) error {
	if a.err != nil {
		return a.err
	}
	if len(chunk) == 0 {
		return nil
	}

	if a.state == stateInBody {
		a.body = append(a.body, chunk...)
		return nil
	}

	// The terminator may straddle the previous chunk, so rescan the last
	// len(separator)-1 bytes already buffered.
	start := len(a.pending) - (len(headerSeparator) - 1)
	if start < 0 {
		start = 0
	}
	a.pending = append(a.pending, chunk...)

	pos := bytes.Index(a.pending[start:], headerSeparator)
	if pos < 0 {
		if len(a.pending) > a.maxHeaderBytes {
			a.err = errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge,
				fmt.Sprintf("no header terminator within %d bytes", a.maxHeaderBytes))
		}
		return a.err
	}

	end := start + pos + len(headerSeparator)
	if end > a.maxHeaderBytes {
		a.err = errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge,
			fmt.Sprintf("header block of %d bytes exceeds %d", end, a.maxHeaderBytes))
		return a.err
	}

	if err := a.parseHeader(string(a.pending[:end-len(headerSeparator)])); err != nil {
		a.err = err
		return err
	}

	a.headerBytes = end
	a.body = append(a.body, a.pending[end:]...)
	a.pending = nil
	a.state = stateInBody
	return nil
}

func (a *Assembler) parseHeader(block string) error {
	statusLine, fields, _ := strings.Cut(block, "\r\n")

	tokens := strings.Fields(statusLine)
	if len(tokens) < 2 {
		return errors.NewProtocolError(errors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("status line %q has no status code", statusLine))
	}
	code, err := strconv.ParseUint(tokens[1], 10, 16)
	if err != nil {
		return errors.NewProtocolError(errors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("invalid status code: %s", tokens[1]))
	}

	a.statusLine = statusLine
	a.proto = tokens[0]
	a.statusCode = int(code)
	a.statusMessage = reasonPhrase(statusLine)

	for _, line := range strings.Split(fields, "\r\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		a.headers = append(a.headers, HttpHeader{Key: key, Value: value})

		if a.contentLength < 0 && strings.EqualFold(key, contentLengthKey) {
			if n, err := strconv.ParseUint(value, 10, 63); err == nil {
				a.contentLength = int64(n)
			}
		}
	}

	return nil
}

// reasonPhrase returns what follows the protocol and code tokens.
func reasonPhrase(statusLine string) string {
	rest := statusLine
	for i := 0; i < 2; i++ {
		rest = strings.TrimLeft(rest, " \t")
		if j := strings.IndexAny(rest, " \t"); j >= 0 {
			rest = rest[j:]
		} else {
			return ""
		}
	}
	return strings.TrimSpace(rest)
}

// HeaderComplete reports whether the header terminator has been seen.
func (a *Assembler) HeaderComplete() bool {
	return a.state == stateInBody
}

// ContentLength is the announced body length, or -1.
func (a *Assembler) ContentLength() int64 {
	return a.contentLength
}

// BodyLen is the number of body bytes received so far.
func (a *Assembler) BodyLen() int {
	return len(a.body)
}

// Complete reports whether the body has reached the announced
// Content-Length. Without one the body only ends at end-of-stream.
func (a *Assembler) Complete() bool {
	return a.state == stateInBody && a.contentLength >= 0 && int64(len(a.body)) >= a.contentLength
}

// Finalize returns the assembled response once the transport has reported
// end-of-stream. It fails with a truncated header error if the header
// terminator never arrived.
func (a *Assembler) Finalize() (*HttpResponse, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.state != stateInBody {
		a.err = errors.NewProtocolError(errors.ProtocolErrorTruncatedHeader,
			fmt.Sprintf("end of stream after %d header bytes without terminator", len(a.pending)))
		return nil, a.err
	}

	return &HttpResponse{
		StatusLine:    a.statusLine,
		Proto:         a.proto,
		StatusCode:    a.statusCode,
		StatusMessage: a.statusMessage,
		Headers:       a.headers,
		ContentLength: a.contentLength,
		HeaderBytes:   a.headerBytes,
		Body:          a.body,
		Overrun:       a.contentLength >= 0 && int64(len(a.body)) > a.contentLength,
	}, nil
}
