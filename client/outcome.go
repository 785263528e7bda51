package client

import (
	stderrors "errors"

	"github.com/ijmichel/httpexperiments/errors"
	"github.com/ijmichel/httpexperiments/protocol"
)

const statusNotFound = 404

// Outcome is how one request cycle ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeMalformedResponse
	OutcomeInvalidURL
	OutcomeNoConnection
	OutcomeTransportFailure
)

// Markers written to the sink in place of a body.
const (
	MarkerNotFound          = "file not found"
	MarkerMalformedResponse = "malformed response"
	MarkerInvalidURL        = "invalid url"
	MarkerNoConnection      = "no connection"
	MarkerTransportFailure  = "transport failure"
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not found"
	case OutcomeMalformedResponse:
		return "malformed response"
	case OutcomeInvalidURL:
		return "invalid url"
	case OutcomeNoConnection:
		return "no connection"
	case OutcomeTransportFailure:
		return "transport failure"
	default:
		return "unknown"
	}
}

// Marker is the text persisted for o. OutcomeOK persists the body instead
// and has no marker.
func (o Outcome) Marker() string {
	switch o {
	case OutcomeNotFound:
		return MarkerNotFound
	case OutcomeMalformedResponse:
		return MarkerMalformedResponse
	case OutcomeInvalidURL:
		return MarkerInvalidURL
	case OutcomeNoConnection:
		return MarkerNoConnection
	case OutcomeTransportFailure:
		return MarkerTransportFailure
	}
	return ""
}

// Success reports whether a response was parsed. A 404 is a success.
func (o Outcome) Success() bool {
	return o == OutcomeOK || o == OutcomeNotFound
}

// Classify maps the result of Fetch to an Outcome.
func Classify(resp *protocol.HttpResponse, err error) Outcome {
	if err == nil {
		if resp != nil && resp.StatusCode == statusNotFound {
			return OutcomeNotFound
		}
		return OutcomeOK
	}

	if errors.IsConnectFailure(err) {
		return OutcomeNoConnection
	}

	var he *errors.HttpError
	if !stderrors.As(err, &he) {
		return OutcomeTransportFailure
	}
	switch he.Type {
	case errors.ErrorURI, errors.ErrorInvalidArgument:
		return OutcomeInvalidURL
	case errors.ErrorProtocol:
		return OutcomeMalformedResponse
	default:
		return OutcomeTransportFailure
	}
}
