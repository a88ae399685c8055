package host

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

// DefaultPingTimeout bounds each host probe.
const DefaultPingTimeout = 3 * time.Second

// Prober measures TCP connect latency to a list of hosts.
type Prober struct {
	dialer net.Dialer
}

func NewProber() *Prober {
	return &Prober{}
}

// Probe connects to every host concurrently. A host that cannot be parsed or
// reached is recorded with the timeout itself, so every host gets an entry.
func (p *Prober) Probe(ctx context.Context, hosts []string, port uint16, timeout time.Duration) map[string]time.Duration {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	result := make(map[string]time.Duration, len(hosts))

	unique := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if _, ok := result[h]; ok {
			continue
		}
		result[h] = timeout
		unique = append(unique, h)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, h := range unique {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			elapsed, err := p.TestTCP(ctx, h, port, timeout)
			if err != nil {
				logger.Warn(ctx, "Host ping failed", zap.String("host", h), zap.Error(err))
				return
			}
			mu.Lock()
			result[h] = elapsed
			mu.Unlock()
		}(h)
	}
	wg.Wait()

	return result
}

// TestTCP returns how long the TCP handshake to addr took. addr is either a
// socket address such as "10.0.0.1:8080" or a bare IP combined with port.
func (p *Prober) TestTCP(ctx context.Context, addr string, port uint16, timeout time.Duration) (time.Duration, error) {
	target, err := resolveAddr(addr, port)
	if err != nil {
		return 0, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", target)
	if err != nil {
		return 0, fmt.Errorf("connect after %d ms: %w", time.Since(start).Milliseconds(), err)
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return elapsed, nil
}

func resolveAddr(addr string, port uint16) (string, error) {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.String(), nil
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("invalid host address %q: %w", addr, err)
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(int(port))), nil
}

// DelaysMs converts probe results to milliseconds (µs / 1000) for a report.
func DelaysMs(delays map[string]time.Duration) map[string]float64 {
	out := make(map[string]float64, len(delays))
	for h, d := range delays {
		out[h] = float64(d.Microseconds()) / 1000.0
	}
	return out
}
