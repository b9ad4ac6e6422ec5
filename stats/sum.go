package stats

import "math"

// sum is a Neumaier compensated sum. A bucket can take tens of thousands of
// samples per second, a plain float64 accumulator drifts at that volume.
type sum struct {
	s, c float64
}

func (k *sum) add(v float64) {
	t := k.s + v
	if math.Abs(k.s) >= math.Abs(v) {
		k.c += (k.s - t) + v
	} else {
		k.c += (v - t) + k.s
	}
	k.s = t
}

func (k *sum) merge(o sum) {
	k.add(o.s)
	k.add(o.c)
}

func (k sum) value() float64 {
	return k.s + k.c
}
