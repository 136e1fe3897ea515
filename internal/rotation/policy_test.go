// File: internal/rotation/policy_test.go
package rotation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackvectorops/ytghost/internal/config"
)

func testConfig() config.RotationConfig {
	return config.RotationConfig{
		RequestThresholdMin: 50,
		RequestThresholdMax: 100,
		IntervalMin:         600 * time.Second,
		IntervalMax:         900 * time.Second,
		RandomChance:        0, // disabled so the other signals test deterministically
		WorkerWakeMin:       3 * time.Second,
		WorkerWakeMax:       8 * time.Second,
		WorkerJoinTimeout:   5 * time.Second,
	}
}

func TestNewStateDrawsWithinRanges(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))
	now := time.Now()

	for i := 0; i < 100; i++ {
		s := p.NewState(now)
		assert.GreaterOrEqual(t, s.Threshold, 50)
		assert.LessOrEqual(t, s.Threshold, 100)
		assert.GreaterOrEqual(t, s.Interval, 600*time.Second)
		assert.LessOrEqual(t, s.Interval, 900*time.Second)
		assert.Equal(t, now, s.LastRotation)
		assert.Zero(t, s.RequestCount)
	}
}

func TestIsDueFreshStateIsNot(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))
	now := time.Now()
	s := p.NewState(now)

	assert.False(t, p.IsDue(s, now))
	assert.False(t, p.IsDue(s, now.Add(time.Second)))
}

func TestIsDueOnRequestCount(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))
	now := time.Now()
	s := p.NewState(now)

	s.RequestCount = s.Threshold
	assert.False(t, p.IsDue(s, now), "at the threshold is not yet over it")
	s.RequestCount = s.Threshold + 1
	assert.True(t, p.IsDue(s, now))
}

func TestIsDueOnElapsedInterval(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))
	now := time.Now()
	s := p.NewState(now)

	assert.True(t, p.IsDue(s, now.Add(s.Interval+time.Second)))
}

func TestIsDueOnRandomDraw(t *testing.T) {
	cfg := testConfig()
	cfg.RandomChance = 1 // always fires
	p := NewPolicyWithRand(cfg, rand.New(rand.NewSource(7)))
	now := time.Now()
	s := p.NewState(now)

	assert.True(t, p.IsDue(s, now))
}

func TestRotatedResetsAndRedraws(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))
	start := time.Now()
	s := p.NewState(start)
	s.RequestCount = 72

	later := start.Add(time.Minute)
	p.Rotated(&s, later)

	assert.Zero(t, s.RequestCount)
	assert.Equal(t, later, s.LastRotation)
	require.GreaterOrEqual(t, s.Threshold, 50)
	require.LessOrEqual(t, s.Threshold, 100)
	assert.False(t, p.IsDue(s, later))
}

func TestWorkerWakeWithinWindow(t *testing.T) {
	p := NewPolicyWithRand(testConfig(), rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		d := p.WorkerWake()
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 8*time.Second)
	}
}
