package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/ijmichel/httpexperiments/errors"
)

// resolveCandidates returns every address host resolves to, in resolver
// order. IP literals resolve to themselves.
func resolveCandidates(host string, port int) ([]*net.TCPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []*net.TCPAddr{{IP: ip, Port: port}}, nil
	}

	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, errors.NewTransportError(
			errors.TransportErrorDnsFailure,
			fmt.Sprintf("failed to resolve %s", host),
			err,
		)
	}
	if len(ips) == 0 {
		return nil, errors.NewTransportError(
			errors.TransportErrorDnsFailure,
			fmt.Sprintf("no addresses for %s", host),
			nil,
		)
	}

	addrs := make([]*net.TCPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, &net.TCPAddr{IP: ip.IP, Port: port, Zone: ip.Zone})
	}
	return addrs, nil
}
