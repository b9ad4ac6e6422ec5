// Package monitor checks that a target keeps accepting TCP connections,
// typically while a sender run loads it.
package monitor

import (
	"context"
	"errors"
	"net"
	"time"

	"synburst/logging"
	"synburst/metrics"
)

// Defaults for Config.
const (
	DefaultCount    = 999
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = time.Second
)

// Config controls a monitor run.
type Config struct {
	// Address is the host:port to connect to.
	Address  string
	Count    int
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultConfig returns the default configuration for address.
func DefaultConfig(address string) Config {
	return Config{
		Address:  address,
		Count:    DefaultCount,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// Dialer opens connections. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Sink receives each ping as soon as it completes.
type Sink interface {
	Ping(p Ping) error
}

// Ping is the outcome of one connection attempt.
type Ping struct {
	Seq int
	RTT time.Duration
	Err error
}

// OK reports whether the connection was established.
func (p Ping) OK() bool {
	return p.Err == nil
}

// Report summarizes a monitor run.
type Report struct {
	Pings   []Ping
	Elapsed time.Duration
}

// AverageRTT returns the mean RTT of the successful pings, or zero when
// none succeeded.
func (r Report) AverageRTT() time.Duration {
	var sum time.Duration
	n := 0
	for _, p := range r.Pings {
		if p.OK() {
			sum += p.RTT
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// AveragePerPing returns the elapsed time divided by the number of pings,
// interval included.
func (r Report) AveragePerPing() time.Duration {
	if len(r.Pings) == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(len(r.Pings))
}

// Run performs up to cfg.Count pings, cfg.Interval apart. It stops early
// when ctx is canceled and returns the pings done so far. A sink error
// aborts the run.
func Run(ctx context.Context, cfg Config, d Dialer, sink Sink) (Report, error) {
	var report Report
	start := time.Now()
	for i := 1; i <= cfg.Count; i++ {
		if ctx.Err() != nil {
			break
		}
		p := ping(ctx, cfg, d, i)
		if p.Err != nil && errors.Is(p.Err, context.Canceled) && ctx.Err() != nil {
			break
		}
		report.Pings = append(report.Pings, p)
		if err := sink.Ping(p); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
		if i == cfg.Count {
			break
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

func ping(ctx context.Context, cfg Config, d Dialer, seq int) Ping {
	dialctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := d.DialContext(dialctx, "tcp", cfg.Address)
	p := Ping{Seq: seq, RTT: time.Since(start), Err: err}
	if err != nil && ctx.Err() != nil {
		return p
	}
	if err != nil {
		metrics.MonitorRTT.WithLabelValues("timeout").Observe(p.RTT.Seconds())
		logging.Logger.WithError(err).WithField("ping", seq).Warn("request timed out")
		return p
	}
	conn.Close()
	metrics.MonitorRTT.WithLabelValues("ok").Observe(p.RTT.Seconds())
	logging.Logger.WithField("ping", seq).WithField("rtt_ms", msec(p.RTT)).Info("connected")
	return p
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
