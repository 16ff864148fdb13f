package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charliek/revive/internal/domain"
)

// TCPProber checks that a TCP port accepts connections. Useful where raw
// ICMP sockets are not available or the provider firewall drops pings.
type TCPProber struct {
	port    int
	timeout time.Duration
}

// NewTCPProber creates a TCP connect prober
func NewTCPProber(port int, timeout time.Duration) *TCPProber {
	return &TCPProber{port: port, timeout: timeout}
}

// Probe dials address:port
func (p *TCPProber) Probe(ctx context.Context, address string) domain.ProbeResult {
	start := time.Now()
	if address == "" {
		return noAddress(start)
	}

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(p.port)))
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return result(domain.ProbeError, address, start, fmt.Errorf("resolving %s: %w", address, err))
		}
		return result(domain.ProbeUnreachable, address, start, err)
	}
	conn.Close()

	return result(domain.ProbeReachable, address, start, nil)
}
