package network

import (
	"context"
	"net"
	"sync"
	"time"

	"ssec-chat/configs"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Probe implements output.Reachability
var _ output.Reachability = (*Probe)(nil)

const (
	defaultProbeTimeout = 1500 * time.Millisecond
	defaultCacheTTL     = 5 * time.Second
)

// Probe struct - Output adapter reporting whether the provider host accepts TCP connections.
// Results are cached for cacheTTL so a burst of sends dials at most once.
type Probe struct {
	enabled  bool
	address  string
	timeout  time.Duration
	cacheTTL time.Duration
	dial     func(ctx context.Context, network, address string) (net.Conn, error)
	now      func() time.Time

	mu        sync.Mutex
	online    bool
	checkedAt time.Time
}

// NewProbe func - Creates new reachability probe
func NewProbe(config configs.Network) *Probe {
	timeout := time.Duration(config.ProbeTimeout) * time.Millisecond
	if config.ProbeTimeout <= 0 {
		timeout = defaultProbeTimeout
	}
	cacheTTL := time.Duration(config.CacheTTL) * time.Millisecond
	if config.CacheTTL < 0 {
		cacheTTL = defaultCacheTTL
	}

	enabled := config.ProbeEnabled && config.ProbeAddress != ""
	if enabled {
		logrus.Infof("Network probe enabled for %s (timeout %v, cache %v)", config.ProbeAddress, timeout, cacheTTL)
	} else {
		logrus.Info("Network probe disabled, sends always treated as online")
	}

	dialer := &net.Dialer{Timeout: timeout}
	return &Probe{
		enabled:  enabled,
		address:  config.ProbeAddress,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		dial:     dialer.DialContext,
		now:      time.Now,
	}
}

// Online reports the cached or freshly probed reachability
func (p *Probe) Online(ctx context.Context) bool {
	if !p.enabled {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.checkedAt.IsZero() && now.Sub(p.checkedAt) < p.cacheTTL {
		return p.online
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", p.address)
	online := err == nil
	if online {
		conn.Close()
	} else {
		logrus.Warnf("Network probe to %s failed: %v", p.address, err)
	}

	if online != p.online || p.checkedAt.IsZero() {
		logrus.Infof("Network reachability changed: online=%v", online)
	}
	p.online = online
	p.checkedAt = now
	return online
}
