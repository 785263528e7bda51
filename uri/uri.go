// Package uri decomposes request URLs into the pieces needed to open a
// connection and write the request line.
package uri

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ijmichel/httpexperiments/errors"
)

const (
	// SchemeHTTP is the only scheme a request can be issued for.
	SchemeHTTP = "http"

	DefaultPort = 80
	DefaultPath = "/"

	// invalidChars cannot appear in the host or in the request line.
	invalidChars = " \t\r\n\x00"
)

// Components is the decomposed form of a URL. It is never mutated after
// Parse returns it.
type Components struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// HostPort renders host:port, bracketing IPv6 literals.
func (c Components) HostPort() string {
	host := c.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(c.Port)
}

func (c Components) String() string {
	return c.Scheme + "://" + c.HostPort() + c.Path
}

// Parse splits raw into scheme, host, port and path.
//
// The scheme is whatever precedes the first "//", minus a trailing colon,
// and must equal "http". The port defaults to 80 and the path to "/".
// Leading slashes of the path are collapsed to one. Query, fragment and
// userinfo are not split out: they stay in the path or the host.
func Parse(raw string) (Components, error) {
	schemePart, rest, found := strings.Cut(raw, "//")
	if !found {
		return Components{}, errors.NewURIError(errors.URIErrorMalformed,
			fmt.Sprintf("missing // separator in %q", raw), nil)
	}
	scheme := strings.TrimSuffix(schemePart, ":")

	authority, path, hasPath := strings.Cut(rest, "/")
	if hasPath {
		path = DefaultPath + strings.TrimLeft(path, "/")
	} else {
		path = DefaultPath
	}

	host, port, err := splitHostPort(authority)
	if err != nil {
		return Components{}, err
	}
	if host == "" {
		return Components{}, errors.NewURIError(errors.URIErrorMalformed,
			fmt.Sprintf("no host in %q", raw), nil)
	}

	if strings.ContainsAny(rest, invalidChars) {
		return Components{}, errors.NewURIError(errors.URIErrorMalformed,
			fmt.Sprintf("space or control character in %q", raw), nil)
	}

	if scheme != SchemeHTTP {
		return Components{}, errors.NewURIError(errors.URIErrorUnsupportedProtocol,
			fmt.Sprintf("scheme %q is not supported", scheme), nil)
	}

	return Components{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
	}, nil
}

func splitHostPort(authority string) (string, int, error) {
	host, portStr := authority, ""
	hasPort := false

	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", 0, errors.NewURIError(errors.URIErrorMalformed,
				fmt.Sprintf("unterminated IPv6 literal %q", authority), nil)
		}
		host = authority[1:end]
		tail := authority[end+1:]
		switch {
		case tail == "":
		case tail[0] == ':':
			portStr, hasPort = tail[1:], true
		default:
			return "", 0, errors.NewURIError(errors.URIErrorMalformed,
				fmt.Sprintf("unexpected %q after IPv6 literal", tail), nil)
		}
	} else {
		host, portStr, hasPort = strings.Cut(authority, ":")
	}

	if !hasPort {
		return host, DefaultPort, nil
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, errors.NewURIError(errors.URIErrorInvalidPort,
			fmt.Sprintf("port %q must be an integer between 1 and 65535", portStr), err)
	}
	return host, int(port), nil
}
