package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
)

// TCPProbe checks whether a TCP connection to a service can be opened
// within its timeout. A refused or timed-out dial means the service is
// not reachable; Failed is reserved for targets that cannot even be
// dialed (unresolvable host, malformed address).
type TCPProbe struct {
	svc config.Service
}

// NewTCPProbe creates a reachability probe for the given service.
func NewTCPProbe(svc config.Service) *TCPProbe {
	return &TCPProbe{svc: svc}
}

func (p *TCPProbe) Run(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{Timeout: p.svc.Timeout.Duration}
	conn, err := dialer.DialContext(ctx, "tcp", p.svc.Addr())
	if err != nil {
		if isAddressError(err) {
			return failed(KindReachability, start, fmt.Sprintf("dial tcp %s: %v", p.svc.Addr(), err))
		}
		return Result{Kind: KindReachability, Reachable: false, CheckedAt: start}
	}
	conn.Close()
	return Result{Kind: KindReachability, Reachable: true, CheckedAt: start}
}

// isAddressError distinguishes "this target can never be dialed" from
// "nothing answered": bad addresses and unresolvable names are probe
// failures, refused or timed-out connections are ordinary unreachability.
func isAddressError(err error) bool {
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound || !dnsErr.IsTimeout
	}
	return false
}
