package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/charliek/revive/internal/domain"
	probing "github.com/prometheus-community/pro-bing"
)

// ICMPProber sends a short burst of echo requests. The server counts as
// reachable when at least one reply arrives.
type ICMPProber struct {
	count      int
	timeout    time.Duration
	privileged bool
}

// NewICMPProber creates an ICMP prober. Unprivileged mode uses UDP ping
// sockets, which need net.ipv4.ping_group_range on Linux.
func NewICMPProber(count int, timeout time.Duration, privileged bool) *ICMPProber {
	if count < 1 {
		count = 1
	}
	return &ICMPProber{count: count, timeout: timeout, privileged: privileged}
}

// Probe pings address
func (p *ICMPProber) Probe(ctx context.Context, address string) domain.ProbeResult {
	start := time.Now()
	if address == "" {
		return noAddress(start)
	}

	pinger, err := probing.NewPinger(address)
	if err != nil {
		return result(domain.ProbeError, address, start, fmt.Errorf("resolving %s: %w", address, err))
	}
	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.Interval = p.timeout / time.Duration(p.count+1)
	pinger.SetPrivileged(p.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return result(domain.ProbeError, address, start, fmt.Errorf("ping %s: %w", address, err))
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return result(domain.ProbeUnreachable, address, start,
			fmt.Errorf("%d packets sent, none received", stats.PacketsSent))
	}

	r := result(domain.ProbeReachable, address, start, nil)
	r.Latency = stats.AvgRtt
	return r
}
