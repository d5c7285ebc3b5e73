package probe

import (
	"context"
	"net"
	"time"
)

// TCPFallback measures connect time to a TCP port as a coarse RTT proxy
// when ICMP is blocked or every ping fails. It is deliberately a rougher
// signal (connect time includes more than one link's worth of latency
// once past the first hop) and is tagged as such via Sample.Source.
type TCPFallback struct {
	Hosts   []string
	Port    string
	Timeout time.Duration
	Dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewTCPFallback returns a TCPFallback using the standard dialer.
func NewTCPFallback(hosts []string, port string, timeout time.Duration) *TCPFallback {
	d := &net.Dialer{}
	return &TCPFallback{
		Hosts:   hosts,
		Port:    port,
		Timeout: timeout,
		Dial:    d.DialContext,
	}
}

// Run attempts a TCP connect to the first reachable host and returns the
// elapsed connect time as the RTT proxy.
func (f *TCPFallback) Run(ctx context.Context) (Sample, bool) {
	for _, host := range f.Hosts {
		dialCtx, cancel := context.WithTimeout(ctx, f.Timeout)
		start := time.Now()
		conn, err := f.Dial(dialCtx, "tcp", net.JoinHostPort(host, f.Port))
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			continue
		}
		conn.Close()
		return Sample{RTTMs: float64(elapsed.Milliseconds()), Source: "tcp"}, true
	}
	return Sample{}, false
}
