package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ijmichel/httpexperiments/errors"
	"github.com/ijmichel/httpexperiments/uri"
)

// NewGetRequest builds the GET request for c. connection is sent verbatim as
// the Connection header value.
func NewGetRequest(c uri.Components, connection string) *HttpRequest {
	return &HttpRequest{
		Method: MethodGet,
		Path:   c.Path,
		Headers: []HttpHeader{
			{Key: "Host", Value: c.HostPort()},
			{Key: "Connection", Value: connection},
		},
	}
}

// BuildRequest renders req as HTTP/1.1 wire bytes, ending with the blank
// line that terminates the header block.
func BuildRequest(req *HttpRequest) ([]byte, error) {
	if req.Method != MethodGet {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unsupported method %d", req.Method))
	}
	if !strings.HasPrefix(req.Path, "/") || strings.ContainsAny(req.Path, "\r\n ") {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("request path %q must start with / and contain no spaces or line breaks", req.Path))
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", req.Method, req.Path)
	for _, header := range req.Headers {
		if strings.ContainsAny(header.Key, "\r\n:") || strings.ContainsAny(header.Value, "\r\n") {
			return nil, errors.NewInvalidArgumentError(fmt.Sprintf("invalid header %q", header.Key))
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", header.Key, header.Value)
	}
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}
