// Package netx decides whether the engine currently runs online or offline.
package netx

import (
	"context"
	"time"
)

// Monitor reports current connectivity. The answer is only guaranteed true
// at the time of the check; callers re-check before every dispatch decision.
type Monitor interface {
	IsOnline(ctx context.Context) bool
}

// Pinger is the probe target. The remote store adapter satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingMonitor probes the backend with a bounded timeout. Any failure,
// including a failure of the check itself, reports offline: the engine fails
// safe toward local-only operation.
type PingMonitor struct {
	pinger  Pinger
	timeout time.Duration
}

func NewPingMonitor(p Pinger, timeout time.Duration) *PingMonitor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PingMonitor{pinger: p, timeout: timeout}
}

func (m *PingMonitor) IsOnline(ctx context.Context) (online bool) {
	defer func() {
		if recover() != nil {
			online = false
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.pinger.Ping(ctx) == nil
}
