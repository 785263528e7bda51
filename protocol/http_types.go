package protocol

import "strings"

// HttpMethod represents HTTP request methods
type HttpMethod int

const (
	MethodGet HttpMethod = iota
)

func (m HttpMethod) String() string {
	switch m {
	case MethodGet:
		return "GET"
	default:
		return ""
	}
}

// Connection header values
const (
	ConnectionClose     = "close"
	ConnectionKeepAlive = "keep-alive"
)

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// HttpRequest represents an HTTP request
type HttpRequest struct {
	Method  HttpMethod
	Path    string
	Headers []HttpHeader
}

// HttpResponse is one fully reassembled response. It owns all of its
// memory; nothing references the transport's read buffer.
type HttpResponse struct {
	StatusLine    string
	Proto         string
	StatusCode    int
	StatusMessage string
	Headers       []HttpHeader
	// ContentLength is -1 when the response carried no usable
	// Content-Length header.
	ContentLength int64
	HeaderBytes   int
	Body          []byte
	// Overrun is set when more body bytes arrived than Content-Length
	// announced. The extra bytes are kept.
	Overrun bool
}

// Header returns the first value of the named header, matched
// case-insensitively.
func (r *HttpResponse) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, name) {
			return h.Value, true
		}
	}
	return "", false
}

// HasContentLength reports whether the response announced its body length.
func (r *HttpResponse) HasContentLength() bool {
	return r.ContentLength >= 0
}
