// Package session owns the browser lifecycle: one controlled browser
// instance per Engine, identity assignment, proxy selection, evasion
// application and the background rotation worker.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/behavior"
	"github.com/blackvectorops/ytghost/internal/config"
	"github.com/blackvectorops/ytghost/internal/download"
	"github.com/blackvectorops/ytghost/internal/extract"
	"github.com/blackvectorops/ytghost/internal/identity"
	"github.com/blackvectorops/ytghost/internal/proxy"
	"github.com/blackvectorops/ytghost/internal/rotation"
	"github.com/blackvectorops/ytghost/internal/stealth"
)

// LifecycleState tracks where the engine is in its lifetime. Transitions are
// one-directional except Active<->Rotating.
type LifecycleState int

const (
	StateUninitialized LifecycleState = iota
	StateInitializing
	StateActive
	StateRotating
	StateClosing
	StateClosed
)

func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateRotating:
		return "rotating"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Engine is an explicit session instance. Nothing here is process-global;
// two Engines in one process do not share identity, proxy or browser state.
type Engine struct {
	id     string
	cfg    *config.Config
	logger *zap.Logger

	identities *identity.Pool
	proxies    *proxy.Registry
	policy     *rotation.Policy
	simulator  *behavior.Simulator
	pipeline   *extract.Pipeline
	downloader *download.Orchestrator

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// mu guards the mutable fields below. Browser commands themselves are
	// serialized separately through opMu so a rotation never interleaves
	// with a foreground navigation.
	mu       sync.Mutex
	state    LifecycleState
	current  identity.Identity
	active   *proxy.Endpoint
	rotState rotation.State

	opMu sync.Mutex

	workerStop chan struct{}
	workerDone chan struct{}
	workerOn   bool

	closeOnce sync.Once
	closeErr  error
}

// New wires an Engine from configuration. The browser is not launched until
// Start is called.
func New(cfg *config.Config, logger *zap.Logger) *Engine {
	e := &Engine{
		id:         uuid.NewString(),
		cfg:        cfg,
		logger:     logger.Named("session"),
		identities: identity.NewPool(),
		proxies:    proxy.NewRegistry(cfg.Proxy, logger),
		policy:     rotation.NewPolicy(cfg.Rotation),
		downloader: download.NewOrchestrator(cfg.Downloader, logger),
		state:      StateUninitialized,
		workerStop: make(chan struct{}),
		workerDone: make(chan struct{}),
	}
	e.pipeline = extract.NewPipeline(cfg.Extractor, logger)
	e.simulator = behavior.New(cfg.Behavior, logger, (*pageSurface)(e))
	return e
}

// ID returns the unique identifier assigned to this session.
func (e *Engine) ID() string { return e.id }

// State reports the current lifecycle state.
func (e *Engine) State() LifecycleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start launches the browser and applies the initial identity. A failure to
// create the browser handle is fatal; a failure to apply evasions is
// reported but the session continues degraded.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateUninitialized {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", state)
	}
	e.state = StateInitializing
	e.current = e.identities.Pick()
	e.rotState = e.policy.NewState(time.Now())
	e.mu.Unlock()

	if e.cfg.Proxy.Enabled {
		if e.proxies.ShouldRefresh() {
			e.proxies.Refresh(ctx)
		}
		e.mu.Lock()
		e.active = e.proxies.Select()
		e.mu.Unlock()
	}

	e.mu.Lock()
	id, active := e.current, e.active
	e.mu.Unlock()

	e.logger.Info("Starting browser session",
		zap.String("session_id", e.id),
		zap.String("identity", id.String()),
		zap.Bool("headless", e.cfg.Browser.Headless),
		zap.Bool("anti_detect", e.cfg.AntiDetect.Enabled))

	opts := buildAllocatorOptions(e.cfg, id, active, e.logger)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	e.allocCancel = allocCancel
	e.browserCancel = browserCancel
	e.browserCtx = browserCtx

	// First command forces the browser process to spawn.
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		e.mu.Lock()
		e.state = StateClosed
		e.mu.Unlock()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	if e.cfg.AntiDetect.Enabled {
		if err := chromedp.Run(browserCtx, stealth.Apply(id, e.cfg.AntiDetect.AdvancedEvasion, e.logger)); err != nil {
			// Degraded but usable.
			e.logger.Warn("Evasion application failed, continuing without full stealth",
				zap.Error(err))
		}
	}

	e.mu.Lock()
	e.state = StateActive
	startWorker := e.cfg.AntiDetect.Enabled && !e.workerOn
	if startWorker {
		e.workerOn = true
	}
	e.mu.Unlock()

	if startWorker {
		go e.rotationWorker()
		e.logger.Info("Background identity rotation enabled",
			zap.Duration("wake_min", e.cfg.Rotation.WorkerWakeMin),
			zap.Duration("wake_max", e.cfg.Rotation.WorkerWakeMax))
	}

	e.logger.Info("Browser session active", zap.String("session_id", e.id))
	return nil
}

// Close tears the session down. It is idempotent and never panics: the
// rotation worker is stopped with a bounded join, then the browser handle is
// released regardless of whether the join succeeded.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		if e.state == StateUninitialized {
			e.state = StateClosed
			e.mu.Unlock()
			return
		}
		e.state = StateClosing
		workerOn := e.workerOn
		e.mu.Unlock()

		if workerOn {
			close(e.workerStop)
			select {
			case <-e.workerDone:
			case <-time.After(e.cfg.Rotation.WorkerJoinTimeout):
				// The handle is released below either way.
				e.logger.Warn("Rotation worker did not stop within join timeout",
					zap.Duration("timeout", e.cfg.Rotation.WorkerJoinTimeout))
			}
		}

		if e.browserCancel != nil {
			e.browserCancel()
		}
		if e.allocCancel != nil {
			e.allocCancel()
		}

		e.mu.Lock()
		e.state = StateClosed
		e.mu.Unlock()
		e.logger.Info("Browser session closed", zap.String("session_id", e.id))
	})
	return e.closeErr
}

// Identity returns the identity currently presented by the session.
func (e *Engine) Identity() identity.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// rotationWorker is the single background task responsible for identity
// rotation. It sleeps a random interval, checks the policy, rotates when due
// and exits promptly when the stop channel closes. Rotation failures are
// logged and the current identity kept; they never terminate the session.
func (e *Engine) rotationWorker() {
	defer close(e.workerDone)
	log := e.logger.Named("rotation")
	log.Debug("Rotation worker started")

	for {
		select {
		case <-e.workerStop:
			log.Debug("Rotation worker stopping")
			return
		case <-time.After(e.policy.WorkerWake()):
		}

		e.mu.Lock()
		if e.state != StateActive {
			e.mu.Unlock()
			continue
		}
		due := e.policy.IsDue(e.rotState, time.Now())
		e.mu.Unlock()
		if !due {
			continue
		}

		if err := e.rotate(); err != nil {
			log.Warn("Identity rotation failed, keeping current identity", zap.Error(err))
		}
	}
}

// rotate swaps in a freshly drawn identity. The new fingerprint takes full
// effect on the next navigation; the UA, device metrics and environment
// overrides are pushed immediately.
func (e *Engine) rotate() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return nil
	}
	e.state = StateRotating
	next := e.identities.Pick()
	e.mu.Unlock()

	err := chromedp.Run(e.browserCtx, stealth.ApplyRotation(next, e.logger))

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateActive
		return fmt.Errorf("applying rotated identity: %w", err)
	}
	old := e.current
	e.current = next
	e.policy.Rotated(&e.rotState, time.Now())
	e.state = StateActive
	e.logger.Info("Identity rotated",
		zap.String("from", old.String()),
		zap.String("to", next.String()))
	return nil
}
