//go:build !linux

package transport

import (
	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/errors"
)

func newUringTransport(kind Kind, logger *zap.Logger) (Transport, error) {
	return nil, errors.NewTransportError(
		errors.TransportErrorIoUringInit,
		string(kind)+" transport requires linux",
		nil,
	)
}
