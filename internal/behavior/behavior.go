// Package behavior produces human-like interaction timing and low-stakes
// page interactions (pointer drift, scrolling, idle pauses, reading time).
// Delays are shaped so the interval pattern itself does not become a
// fingerprint, and every interaction is isolated: one failing step never
// aborts the rest.
package behavior

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/blackvectorops/ytghost/internal/config"
	"go.uber.org/zap"
)

// Surface is the narrow slice of the controlled browser the simulator acts
// on. The session controller implements it; tests substitute a fake.
type Surface interface {
	// MoveMouse dispatches a raw pointer-move to the given viewport
	// coordinates.
	MoveMouse(ctx context.Context, x, y float64) error
	// ScrollBy scrolls the page vertically by delta CSS pixels.
	ScrollBy(ctx context.Context, delta int) error
	// TextLength reports the length of the page's visible text, used to
	// estimate a plausible reading time.
	TextLength(ctx context.Context) (int, error)
}

// minSleep floors every produced delay so a negative jitter draw can never
// yield a non-positive sleep.
const minSleep = 100 * time.Millisecond

// jitterStdDev is the standard deviation of the Gaussian jitter added on top
// of the uniform base delay.
const jitterStdDev = 300 * time.Millisecond

// shape is one of the four ways a delay budget can be spent.
type shape int

const (
	shapeSteady shape = iota // one uninterrupted sleep
	shapeSegmented           // the budget split by micro-pauses
	shapeBursts              // several short sleeps
	shapeScaled              // single sleep, rate-scaled within ±20%
	shapeCount
)

// Simulator draws delays and runs interaction sequences.
type Simulator struct {
	cfg     config.BehaviorConfig
	logger  *zap.Logger
	surface Surface

	mu     sync.Mutex
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	posX   float64
	posY   float64
}

// New builds a simulator seeded from the clock.
func New(cfg config.BehaviorConfig, logger *zap.Logger, surface Surface) *Simulator {
	return NewWithRand(cfg, logger, surface, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand builds a simulator with an injected RNG for deterministic tests.
func NewWithRand(cfg config.BehaviorConfig, logger *zap.Logger, surface Surface, rng *rand.Rand) *Simulator {
	seed := rng.Int63()
	return &Simulator{
		cfg:     cfg,
		logger:  logger.Named("behavior"),
		surface: surface,
		rng:     rng,
		noiseX:  perlin.NewPerlin(2, 2, 3, seed),
		noiseY:  perlin.NewPerlin(2, 2, 3, seed+1),
		posX:    400,
		posY:    300,
	}
}

// Delay draws a single delay value: uniform(min,max) plus Gaussian jitter,
// floored at 100ms.
func (s *Simulator) Delay(min, max time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayLocked(min, max)
}

func (s *Simulator) delayLocked(min, max time.Duration) time.Duration {
	if max < min {
		max = min
	}
	base := min
	if span := max - min; span > 0 {
		base += time.Duration(s.rng.Int63n(int64(span)))
	}
	jitter := time.Duration(s.rng.NormFloat64() * float64(jitterStdDev))
	d := base + jitter
	if d < minSleep {
		d = minSleep
	}
	return d
}

// Throttle spends one inter-request delay drawn from the configured general
// bounds, pacing successive navigations.
func (s *Simulator) Throttle(ctx context.Context) error {
	return hesitate(ctx, s.Delay(s.cfg.MinDelay, s.cfg.MaxDelay))
}

// Pause consumes one drawn delay using a randomly selected timing shape, so
// identical budgets produce differently structured sleep intervals.
func (s *Simulator) Pause(ctx context.Context, min, max time.Duration) error {
	s.mu.Lock()
	budget := s.delayLocked(min, max)
	shp := shape(s.rng.Intn(int(shapeCount)))
	s.mu.Unlock()

	switch shp {
	case shapeSegmented:
		return s.pauseSegmented(ctx, budget)
	case shapeBursts:
		return s.pauseBursts(ctx, budget)
	case shapeScaled:
		s.mu.Lock()
		scale := 0.8 + s.rng.Float64()*0.4
		s.mu.Unlock()
		return hesitate(ctx, time.Duration(float64(budget)*scale))
	default:
		return hesitate(ctx, budget)
	}
}

// pauseSegmented spends the budget in small slices, like someone pausing to
// think between glances.
func (s *Simulator) pauseSegmented(ctx context.Context, budget time.Duration) error {
	remaining := budget
	for remaining > 0 {
		s.mu.Lock()
		slice := 100*time.Millisecond + time.Duration(s.rng.Int63n(int64(400*time.Millisecond)))
		s.mu.Unlock()
		if slice > remaining {
			slice = remaining
		}
		if err := hesitate(ctx, slice); err != nil {
			return err
		}
		remaining -= slice
	}
	return nil
}

// pauseBursts splits the budget into 2-5 roughly equal sleeps with per-burst
// jitter.
func (s *Simulator) pauseBursts(ctx context.Context, budget time.Duration) error {
	s.mu.Lock()
	n := 2 + s.rng.Intn(4)
	s.mu.Unlock()
	per := budget / time.Duration(n)
	for i := 0; i < n; i++ {
		s.mu.Lock()
		jitter := time.Duration((s.rng.Float64()*0.2 - 0.1) * float64(per))
		s.mu.Unlock()
		d := per + jitter
		if d < 10*time.Millisecond {
			d = 10 * time.Millisecond
		}
		if err := hesitate(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Simulate runs 1-3 distinct interactions against the browser surface.
// Failures inside a single interaction are logged and skipped; only context
// cancellation stops the sequence.
func (s *Simulator) Simulate(ctx context.Context) error {
	type interaction struct {
		name string
		run  func(context.Context) error
	}
	all := []interaction{
		{"pointer_move", s.pointerMove},
		{"scroll", s.randomScroll},
		{"idle_pause", s.idlePause},
		{"reading_time", s.readingTime},
	}

	s.mu.Lock()
	n := 1 + s.rng.Intn(3)
	s.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	s.mu.Unlock()

	for _, it := range all[:n] {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := it.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("Interaction step failed, continuing", zap.String("step", it.name), zap.Error(err))
		}
	}
	return nil
}

// pointerMove drifts the cursor along a Perlin-noise path in 1-3 hops.
func (s *Simulator) pointerMove(ctx context.Context) error {
	s.mu.Lock()
	hops := 1 + s.rng.Intn(3)
	s.mu.Unlock()

	for i := 0; i < hops; i++ {
		s.mu.Lock()
		t := float64(time.Now().UnixNano()%1e9) / 1e9
		dx := s.noiseX.Noise1D(t)*60 + float64(s.rng.Intn(201)-100)
		dy := s.noiseY.Noise1D(t)*60 + float64(s.rng.Intn(201)-100)
		s.posX = clamp(s.posX+dx, 0, 1280)
		s.posY = clamp(s.posY+dy, 0, 720)
		x, y := s.posX, s.posY
		pause := 100*time.Millisecond + time.Duration(s.rng.Int63n(int64(200*time.Millisecond)))
		s.mu.Unlock()

		if err := s.surface.MoveMouse(ctx, x, y); err != nil {
			return err
		}
		if err := hesitate(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

var scrollAmounts = []int{100, 200, 300, -150, -250, 400, 500}

func (s *Simulator) randomScroll(ctx context.Context) error {
	s.mu.Lock()
	delta := scrollAmounts[s.rng.Intn(len(scrollAmounts))]
	pause := 500*time.Millisecond + time.Duration(s.rng.Int63n(int64(time.Second)))
	s.mu.Unlock()

	if err := s.surface.ScrollBy(ctx, delta); err != nil {
		return err
	}
	return hesitate(ctx, pause)
}

func (s *Simulator) idlePause(ctx context.Context) error {
	s.mu.Lock()
	d := time.Second + time.Duration(s.rng.Int63n(int64(2*time.Second)))
	s.mu.Unlock()
	return hesitate(ctx, d)
}

// readingTime estimates how long a human would spend on the current page
// (250 words per minute, ~5 characters per word), sleeps a small fraction of
// it, and caps the result.
func (s *Simulator) readingTime(ctx context.Context) error {
	length, err := s.surface.TextLength(ctx)
	if err != nil || length <= 0 {
		s.mu.Lock()
		d := time.Second + time.Duration(s.rng.Int63n(int64(2*time.Second)))
		s.mu.Unlock()
		return hesitate(ctx, d)
	}
	fullSeconds := float64(length) / 5.0 / 250.0 * 60.0
	full := time.Duration(fullSeconds * float64(time.Second))

	s.mu.Lock()
	frac := 0.1 + s.rng.Float64()*0.2
	s.mu.Unlock()

	d := time.Duration(float64(full) * frac)
	if max := s.cfg.MaxReadingTime; max > 0 && d > max {
		d = max
	}
	return hesitate(ctx, d)
}

// hesitate sleeps, respecting cancellation.
func hesitate(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
