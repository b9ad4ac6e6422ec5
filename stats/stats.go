// Package stats aggregates per-packet send latencies into buckets keyed by
// whole seconds since the start of a run.
package stats

import (
	"errors"
	"math"
)

// DefaultCapacity is the number of one-second buckets, one hour of runtime.
const DefaultCapacity = 3600

// ErrNoData is returned by Finalize when no sample was recorded.
var ErrNoData = errors.New("no samples recorded")

// Sample is the timing of one successful send.
type Sample struct {
	// Seq is the 1-based attempt number of the packet.
	Seq int
	// ElapsedUsec is the send latency in microseconds.
	ElapsedUsec float64
	// Second is the whole number of seconds between the run start and the
	// start of the send.
	Second int
}

// Bucket accumulates the samples of one second.
type Bucket struct {
	sum   sum
	Count int
}

// Sum returns the accumulated latency in microseconds.
func (b *Bucket) Sum() float64 {
	return b.sum.value()
}

// Average returns the mean latency of the bucket. It is NaN for an empty
// bucket.
func (b *Bucket) Average() float64 {
	if b.Count == 0 {
		return math.NaN()
	}
	return b.Sum() / float64(b.Count)
}

func (b *Bucket) add(v float64) {
	b.sum.add(v)
	b.Count++
}

// SecondAverage is the reported average for one populated second.
type SecondAverage struct {
	Second      int
	Count       int
	AverageUsec float64
}

// Summary is the result of a run's aggregation.
type Summary struct {
	// Seconds lists the populated buckets in ascending order.
	Seconds []SecondAverage
	// Overflow holds samples whose second was beyond the bucket capacity.
	Overflow SecondAverage
	// TotalPackets counts every recorded sample, overflow included.
	TotalPackets int
	// TotalUsec is the latency sum over every recorded sample.
	TotalUsec float64
	// AverageUsec is TotalUsec / TotalPackets.
	AverageUsec float64
}

// Aggregator collects samples. The zero value is not usable; use New.
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	buckets  []Bucket
	overflow Bucket
}

// New returns an Aggregator with capacity one-second buckets. A
// non-positive capacity selects DefaultCapacity.
func New(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{buckets: make([]Bucket, capacity)}
}

// Capacity returns the number of buckets.
func (a *Aggregator) Capacity() int {
	return len(a.buckets)
}

// Record adds s to the bucket of its second. Samples outside the bucket
// range only count towards the totals.
func (a *Aggregator) Record(s Sample) {
	if s.Second >= 0 && s.Second < len(a.buckets) {
		a.buckets[s.Second].add(s.ElapsedUsec)
		return
	}
	a.overflow.add(s.ElapsedUsec)
}

// Bucket returns the bucket for second, or nil if second is out of range.
func (a *Aggregator) Bucket(second int) *Bucket {
	if second < 0 || second >= len(a.buckets) {
		return nil
	}
	return &a.buckets[second]
}

// Finalize computes the per-second averages and the global average. It
// returns ErrNoData, along with an otherwise empty summary, if nothing was
// recorded.
func (a *Aggregator) Finalize() (Summary, error) {
	var summary Summary
	var total sum
	for i := range a.buckets {
		b := &a.buckets[i]
		if b.Count == 0 {
			continue
		}
		summary.Seconds = append(summary.Seconds, SecondAverage{
			Second:      i,
			Count:       b.Count,
			AverageUsec: b.Average(),
		})
		total.merge(b.sum)
		summary.TotalPackets += b.Count
	}
	if a.overflow.Count > 0 {
		summary.Overflow = SecondAverage{
			Second:      len(a.buckets),
			Count:       a.overflow.Count,
			AverageUsec: a.overflow.Average(),
		}
		total.merge(a.overflow.sum)
		summary.TotalPackets += a.overflow.Count
	}
	if summary.TotalPackets == 0 {
		return summary, ErrNoData
	}
	summary.TotalUsec = total.value()
	summary.AverageUsec = summary.TotalUsec / float64(summary.TotalPackets)
	return summary, nil
}
