// Package rotation decides when a session's identity should be replaced.
// The decision mixes three signals (request volume, elapsed time, and an
// independent random draw) so the cadence cannot be inferred from request
// counts or wall clock alone.
package rotation

import (
	"math/rand"
	"sync"
	"time"

	"github.com/blackvectorops/ytghost/internal/config"
)

// State is the per-session rotation bookkeeping. It is owned by the session
// controller, which serializes access; Policy never retains a reference.
type State struct {
	RequestCount int
	LastRotation time.Time
	// Threshold and Interval are redrawn on every rotation so the cadence
	// never turns periodic.
	Threshold int
	Interval  time.Duration
}

// Policy draws thresholds and evaluates rotation pressure. Safe for use from
// the rotation worker and the foreground caller concurrently.
type Policy struct {
	cfg config.RotationConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy builds a policy from the configured ranges, seeded from the clock.
func NewPolicy(cfg config.RotationConfig) *Policy {
	return NewPolicyWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPolicyWithRand builds a policy with an injected RNG for deterministic
// tests.
func NewPolicyWithRand(cfg config.RotationConfig, rng *rand.Rand) *Policy {
	return &Policy{cfg: cfg, rng: rng}
}

// NewState returns a fresh State with thresholds drawn and the rotation clock
// set to now.
func (p *Policy) NewState(now time.Time) State {
	s := State{LastRotation: now}
	p.redraw(&s)
	return s
}

// IsDue reports whether the session should rotate. Any one of the three
// signals is sufficient: the request count exceeded the drawn threshold, the
// drawn interval elapsed, or the independent low-probability draw fired.
func (p *Policy) IsDue(s State, now time.Time) bool {
	if s.RequestCount > s.Threshold {
		return true
	}
	if now.Sub(s.LastRotation) > s.Interval {
		return true
	}
	return p.randomDraw()
}

// Rotated resets the counters and redraws the thresholds after a rotation
// has been carried out.
func (p *Policy) Rotated(s *State, now time.Time) {
	s.RequestCount = 0
	s.LastRotation = now
	p.redraw(s)
}

func (p *Policy) redraw(s *State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.Threshold = p.cfg.RequestThresholdMin + p.intnLocked(p.cfg.RequestThresholdMax-p.cfg.RequestThresholdMin)
	span := p.cfg.IntervalMax - p.cfg.IntervalMin
	s.Interval = p.cfg.IntervalMin
	if span > 0 {
		s.Interval += time.Duration(p.rng.Int63n(int64(span)))
	}
}

func (p *Policy) randomDraw() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < p.cfg.RandomChance
}

// WorkerWake draws the next sleep for the background rotation worker,
// uniform across the configured wake window.
func (p *Policy) WorkerWake() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	span := p.cfg.WorkerWakeMax - p.cfg.WorkerWakeMin
	d := p.cfg.WorkerWakeMin
	if span > 0 {
		d += time.Duration(p.rng.Int63n(int64(span)))
	}
	return d
}

// intnLocked tolerates a zero-width range. Caller holds p.mu.
func (p *Policy) intnLocked(n int) int {
	if n <= 0 {
		return 0
	}
	return p.rng.Intn(n + 1)
}
