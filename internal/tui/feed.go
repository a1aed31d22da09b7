// Package tui shows a propagation as it runs.
package tui

import (
	"math"
	"sync"
	"time"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"github.com/san-kum/orbitekf/internal/metrics"
	"github.com/san-kum/orbitekf/internal/stm"
	"gonum.org/v1/gonum/floats"
)

// Sample is one snapshot of a running propagation.
type Sample struct {
	Step        int
	T           float64
	Radius      float64
	EnergyDrift float64
	PhiDiag     []float64
}

// Feed is a dynamo.Observer that turns propagation steps into samples for
// the live view. At most one sample waits in the channel; a newer one
// replaces it, so a slow terminal never stalls the integrator.
type Feed struct {
	mu       float64
	interval time.Duration
	now      func() time.Time

	ch        chan Sample
	done      chan struct{}
	closeOnce sync.Once

	lock     sync.Mutex
	last     Sample
	lastSent time.Time
	step     int
	e0       float64
}

// NewFeed emits at most one sample per interval. A zero interval emits
// every step.
func NewFeed(mu float64, interval time.Duration) *Feed {
	return &Feed{
		mu:       mu,
		interval: interval,
		now:      time.Now,
		ch:       make(chan Sample, 1),
		done:     make(chan struct{}),
	}
}

func (f *Feed) Samples() <-chan Sample { return f.ch }

// Done is closed by Close once no more steps will arrive.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// Last returns the most recent step, whether or not it was emitted.
func (f *Feed) Last() Sample {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.last
}

func (f *Feed) OnStep(x dynamo.State, t float64) {
	s := f.sample(x, t)

	f.lock.Lock()
	f.last = s
	now := f.now()
	due := f.step == 1 || f.interval == 0 || now.Sub(f.lastSent) >= f.interval
	if due {
		f.lastSent = now
	}
	f.lock.Unlock()

	if due {
		f.offer(s)
	}
}

func (f *Feed) sample(x dynamo.State, t float64) Sample {
	f.lock.Lock()
	defer f.lock.Unlock()

	s := Sample{Step: f.step, T: t}
	f.step++

	if len(x) >= 6 {
		s.Radius = floats.Norm(x.Position(), 2)
		if f.mu > 0 && s.Radius > 0 {
			e := metrics.SpecificEnergy(x, f.mu)
			if s.Step == 0 {
				f.e0 = e
			}
			if f.e0 != 0 {
				s.EnergyDrift = math.Abs(e-f.e0) / math.Abs(f.e0)
			}
		}
	}

	if n, err := stm.AgentCount(len(x)); err == nil && n > 0 {
		block := stm.Block(x, n)
		s.PhiDiag = make([]float64, n)
		for i := range s.PhiDiag {
			s.PhiDiag[i] = block[i+i*n]
		}
	}
	return s
}

func (f *Feed) offer(s Sample) {
	select {
	case f.ch <- s:
		return
	default:
	}
	// drop the stale sample
	select {
	case <-f.ch:
	default:
	}
	select {
	case f.ch <- s:
	default:
	}
}
