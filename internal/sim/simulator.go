package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/dynamo"
)

var ErrRunFinished = errors.New("dilasim: run already completed all steps")

type Simulator struct {
	backend   compute.Backend
	logger    *slog.Logger
	metrics   []Metric
	observers []Observer
	pool      *BufferPool
}

func New(backend compute.Backend, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Simulator{
		backend:   backend,
		logger:    logger,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) Backend() string        { return s.backend.Name() }

// Close releases the backend. The simulator must not be used afterwards.
func (s *Simulator) Close() {
	s.backend.Cleanup()
}

// Run advances a private copy of initial by exactly cfg.Steps steps. The
// context is only consulted before the first step; a started run always
// completes.
func (s *Simulator) Run(ctx context.Context, initial []dynamo.Particle, cfg dynamo.RunConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.Start(initial, cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("run started",
		"mode", cfg.Mode,
		"sensitivity", cfg.Sensitivity,
		"particles", len(initial),
		"steps", cfg.Steps,
		"backend", s.backend.Name())

	for !sess.Done() {
		if _, err := sess.Step(); err != nil {
			sess.release()
			return nil, err
		}
	}

	result, err := sess.Finish()
	if err != nil {
		return nil, err
	}

	s.logger.Info("run finished",
		"mode", cfg.Mode,
		"sensitivity", cfg.Sensitivity,
		"elapsed", result.Elapsed,
		"active_fraction", result.ActiveFraction())

	return result, nil
}

// Start prepares a run that the caller drives one step at a time.
func (s *Simulator) Start(initial []dynamo.Particle, cfg dynamo.RunConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if s.pool == nil || s.pool.Size() != len(initial) {
		s.pool = NewBufferPool(len(initial))
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	return &Session{
		sim:  s,
		cfg:  cfg,
		cur:  s.pool.GetAndCopy(initial),
		next: s.pool.Get(),
	}, nil
}

// Session is one in-flight run. It owns its particle buffers exclusively and
// is not safe for concurrent use.
type Session struct {
	sim     *Simulator
	cfg     dynamo.RunConfig
	cur     []dynamo.Particle
	next    []dynamo.Particle
	step    int
	active  int
	last    int
	elapsed time.Duration
}

func (ss *Session) Done() bool     { return ss.step >= ss.cfg.Steps }
func (ss *Session) StepIndex() int { return ss.step }
func (ss *Session) LastActive() int {
	return ss.last
}

// Particles is the store after the latest completed step. Callers must not
// modify or retain it across Step calls.
func (ss *Session) Particles() []dynamo.Particle { return ss.cur }

// Step submits one step to the backend and waits for it: the barrier between
// steps.
func (ss *Session) Step() (int, error) {
	if ss.cur == nil || ss.Done() {
		return 0, ErrRunFinished
	}

	t0 := time.Now()
	active, err := ss.sim.backend.Dispatch(ss.cur, ss.next, ss.cfg.Step(ss.step))
	ss.elapsed += time.Since(t0)
	if err != nil {
		return 0, &dynamo.RunError{Step: ss.step, Wrapped: err}
	}

	ss.cur, ss.next = ss.next, ss.cur
	ss.active += active
	ss.last = active

	for _, m := range ss.sim.metrics {
		m.Observe(ss.cur, ss.step, active)
	}
	for _, obs := range ss.sim.observers {
		obs.OnStep(ss.cur, ss.step, active)
	}

	if ss.step%100 == 0 {
		ss.sim.logger.Debug("step", "index", ss.step, "active", active, "elapsed", ss.elapsed)
	}

	ss.step++
	return active, nil
}

// Finish reads the final store back and releases the session's buffers.
func (ss *Session) Finish() (*Result, error) {
	if ss.cur == nil {
		return nil, ErrRunFinished
	}
	defer ss.release()

	for i, p := range ss.cur {
		if !p.Pos.IsValid() || !p.Vel.IsValid() {
			return nil, &dynamo.RunError{
				Step:    ss.step,
				Wrapped: fmt.Errorf("%w: particle %d", dynamo.ErrInvalidState, i),
			}
		}
	}

	result := &Result{
		Particles:   dynamo.Clone(ss.cur),
		Steps:       ss.step,
		ActiveSteps: ss.active,
		Elapsed:     ss.elapsed,
		Backend:     ss.sim.backend.Name(),
		Metrics:     make(map[string]float64, len(ss.sim.metrics)),
	}
	for _, m := range ss.sim.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (ss *Session) release() {
	if ss.cur == nil {
		return
	}
	ss.sim.pool.Put(ss.cur)
	ss.sim.pool.Put(ss.next)
	ss.cur, ss.next = nil, nil
}
