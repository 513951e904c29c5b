package network

import (
	"context"
	"log/slog"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is the platform adapter that feeds a Monitor: it pings the remote
// backend on a fixed interval and pushes the result into Monitor.Set.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// NewProber builds a Prober. Each ping is bounded by the smaller of interval
// and five seconds.
func NewProber(pinger Pinger, monitor *Monitor, interval time.Duration, log *slog.Logger) *Prober {
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &Prober{pinger: pinger, monitor: monitor, interval: interval, timeout: timeout, log: log}
}

// Reachable pings once and reports whether the backend answered.
func Reachable(ctx context.Context, pinger Pinger, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pinger.Ping(ctx) == nil
}

// Check pings once and records the result.
func (p *Prober) Check(ctx context.Context) bool {
	online := Reachable(ctx, p.pinger, p.timeout)
	if p.monitor.Set(online) {
		p.log.InfoContext(ctx, "network status changed", "online", online)
	}
	return online
}

// Run checks on every tick until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
