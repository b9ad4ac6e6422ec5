// Package runner drives a sender run: it builds, sends and times a fixed
// number of SYN packets, one at a time, and aggregates the timings.
package runner

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/apex/log"

	"synburst/logging"
	"synburst/metrics"
	"synburst/packet"
	"synburst/stats"
	"synburst/transmit"
)

// Sink receives every successful send, in order.
type Sink interface {
	Packet(s stats.Sample) error
}

// Result is the outcome of a run.
type Result struct {
	Summary  stats.Summary
	Attempts int
	Failures int
	// Elapsed is the wall time of the whole run.
	Elapsed time.Duration
}

// Runner sends the packets of one run. It is single use.
type Runner struct {
	cfg    Config
	sender transmit.Sender
	sink   Sink
	log    log.Interface

	now func() time.Time
	rng *rand.Rand
}

// New returns a Runner. cfg must be valid.
func New(cfg Config, sender transmit.Sender, sink Sink) *Runner {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Runner{
		cfg:    cfg,
		sender: sender,
		sink:   sink,
		log:    &logging.Logger,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// WithLogger sets the logger used for progress entries.
func (r *Runner) WithLogger(l log.Interface) *Runner {
	r.log = l
	return r
}

// Run attempts every packet of the run. Send failures are counted and
// skipped. A sink error aborts the run. When no send succeeded Run returns
// the result along with stats.ErrNoData.
func (r *Runner) Run() (Result, error) {
	var result Result
	agg := stats.New(r.cfg.Capacity)
	var builder packet.Builder
	spec := r.cfg.spec()

	start := r.now()
	for loop := 0; loop < r.cfg.Loops; loop++ {
		for i := 0; i < r.cfg.PacketsPerLoop; i++ {
			result.Attempts++
			seq := loop*r.cfg.PacketsPerLoop + i + 1

			spec.SourcePort = uint16(r.rng.Uint32())
			spec.ID = uint16(r.rng.Uint32())
			pkt, err := builder.Build(spec)
			if err != nil {
				return result, fmt.Errorf("packet #%d: %w", seq, err)
			}

			metrics.SendAttempts.Inc()
			t, err := r.sender.Send(pkt)
			if err != nil {
				result.Failures++
				metrics.Packets.WithLabelValues("failed").Inc()
				continue
			}
			metrics.Packets.WithLabelValues("sent").Inc()
			metrics.BytesSent.Add(float64(t.N))
			metrics.SendLatency.Observe(t.Elapsed().Seconds())

			s := stats.Sample{
				Seq:         seq,
				ElapsedUsec: float64(t.Elapsed()) / float64(time.Microsecond),
				Second:      int(math.Floor(t.Start.Sub(start).Seconds())),
			}
			agg.Record(s)
			if err := r.sink.Packet(s); err != nil {
				return result, fmt.Errorf("packet #%d: %w", seq, err)
			}
		}
		r.log.WithFields(log.Fields{
			"loop":     loop + 1,
			"loops":    r.cfg.Loops,
			"failures": result.Failures,
		}).Infof("Completed loop %d/%d", loop+1, r.cfg.Loops)
	}
	result.Elapsed = r.now().Sub(start)

	summary, err := agg.Finalize()
	result.Summary = summary
	if summary.Overflow.Count > 0 {
		r.log.WithFields(log.Fields{
			"packets":  summary.Overflow.Count,
			"avg_usec": summary.Overflow.AverageUsec,
			"capacity": r.cfg.Capacity,
		}).Warn("packets sent past the last statistics bucket")
	}
	if errors.Is(err, stats.ErrNoData) {
		r.log.WithField("attempts", result.Attempts).Warn("no packet was sent successfully")
	}
	return result, err
}
