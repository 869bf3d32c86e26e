package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/kernel"
	"github.com/san-kum/dilasim/internal/metrics"
)

func lattice(n int) []dynamo.Particle {
	ps := make([]dynamo.Particle, n)
	for i := range ps {
		ps[i] = dynamo.Particle{
			Pos:  dynamo.Vec3{float64(i%8) * 3, float64(i/8%8) * 3, float64(i/64) * 3},
			Mass: 1,
			Type: float64((i / 3) % 2),
		}
	}
	return ps
}

type activityObserver struct {
	steps    int
	inactive int
}

func (o *activityObserver) OnStep(ps []dynamo.Particle, step, active int) {
	o.steps++
	for _, p := range ps {
		if !p.IsActive() {
			o.inactive++
		}
	}
}

func TestSimulatorRun(t *testing.T) {
	s := New(compute.NewCPUBackend(2), nil)

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 10

	initial := lattice(64)
	before := dynamo.Clone(initial)

	result, err := s.Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", result.Steps)
	}
	if len(result.Particles) != 64 {
		t.Errorf("expected 64 particles, got %d", len(result.Particles))
	}
	for i := range initial {
		if initial[i] != before[i] {
			t.Fatalf("initial particle %d mutated by run", i)
		}
	}
}

func TestSimulatorPlainModeNeverSleeps(t *testing.T) {
	s := New(compute.NewCPUBackend(4), nil)
	obs := &activityObserver{}
	s.AddObserver(obs)

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 25
	cfg.Sensitivity = 1e9

	result, err := s.Run(context.Background(), lattice(300), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if obs.steps != 25 {
		t.Errorf("observer saw %d steps, want 25", obs.steps)
	}
	if obs.inactive != 0 {
		t.Errorf("plain mode left %d particle-steps inactive", obs.inactive)
	}
	if result.ActiveFraction() != 1 {
		t.Errorf("expected active fraction 1, got %f", result.ActiveFraction())
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 30
	cfg.Mode = dynamo.ModeAdaptive
	cfg.Sensitivity = 5

	initial := lattice(512)

	r1, err := New(compute.NewCPUBackend(1), nil).Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := New(compute.NewCPUBackend(8), nil).Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatal(err)
	}

	rmse, err := metrics.RMSE(r1.Particles, r2.Particles)
	if err != nil {
		t.Fatal(err)
	}
	if rmse != 0 {
		t.Errorf("expected identical runs, rmse=%g", rmse)
	}
	if r1.ActiveSteps != r2.ActiveSteps {
		t.Errorf("active steps differ: %d vs %d", r1.ActiveSteps, r2.ActiveSteps)
	}
}

func TestSimulatorTwoBodyAttraction(t *testing.T) {
	initial := []dynamo.Particle{
		{Pos: dynamo.Vec3{0, 0, 0}, Mass: 1},
		{Pos: dynamo.Vec3{10, 0, 0}, Mass: 1},
	}

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 1
	sc := cfg.Step(0)
	k := cfg.Constants

	hits := func(i, j int) float64 {
		h := 0
		for trial := 0; trial < sc.Samples; trial++ {
			if kernel.Sample(i, sc.TimeSeed, trial, 2) == j {
				h++
			}
		}
		return float64(h)
	}

	// v = F·dt from rest, x = v·dt
	unit := k.G * k.K / (100 + k.Softening) * cfg.Dt * cfg.Dt
	want0 := hits(0, 1) * unit
	want1 := 10 - hits(1, 0)*unit

	result, err := New(compute.NewCPUBackend(1), nil).Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatal(err)
	}

	p0, p1 := result.Particles[0].Pos, result.Particles[1].Pos
	if math.Abs(p0[0]-want0) > 1e-12 || math.Abs(p1[0]-want1) > 1e-12 {
		t.Errorf("got x0=%.15f x1=%.15f, want %.15f %.15f", p0[0], p1[0], want0, want1)
	}
	if p1[0]-p0[0] > 10 {
		t.Errorf("same-type pair moved apart: separation %f", p1[0]-p0[0])
	}
	if hits(0, 1)+hits(1, 0) > 0 && p1[0]-p0[0] >= 10 {
		t.Errorf("same-type pair did not move closer")
	}
}

func TestSimulatorIsolatedParticleSleeps(t *testing.T) {
	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 100
	cfg.Mode = dynamo.ModeAdaptive
	cfg.Sensitivity = 1

	result, err := New(compute.NewCPUBackend(1), nil).Run(context.Background(),
		[]dynamo.Particle{{Pos: dynamo.Vec3{1, 1, 1}}}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if result.ActiveSteps < 1 || result.ActiveSteps > 2 {
		t.Errorf("expected 1-2 firings in 100 sleeping steps, got %d", result.ActiveSteps)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s := New(compute.NewCPUBackend(1), nil)

	tests := []struct {
		name string
		cfg  func() dynamo.RunConfig
	}{
		{"zero dt", func() dynamo.RunConfig { c := dynamo.DefaultRunConfig(); c.Dt = 0; return c }},
		{"negative steps", func() dynamo.RunConfig { c := dynamo.DefaultRunConfig(); c.Steps = -1; return c }},
		{"negative samples", func() dynamo.RunConfig { c := dynamo.DefaultRunConfig(); c.Samples = -1; return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), lattice(8), tt.cfg())
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(compute.NewCPUBackend(1), nil).Run(ctx, lattice(8), dynamo.DefaultRunConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorMetrics(t *testing.T) {
	s := New(compute.NewCPUBackend(2), nil)
	s.AddMetric(metrics.NewActiveFraction())
	s.AddMetric(metrics.NewKineticEnergy())

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 5

	result, err := s.Run(context.Background(), lattice(64), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if v, ok := result.Metrics["active_fraction"]; !ok || v != 1 {
		t.Errorf("expected active_fraction 1, got %v (present=%v)", v, ok)
	}
	if _, ok := result.Metrics["kinetic_energy"]; !ok {
		t.Error("kinetic_energy metric not found in result")
	}
}

func TestSessionStepping(t *testing.T) {
	s := New(compute.NewCPUBackend(1), nil)
	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 3

	sess, err := s.Start(lattice(16), cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if sess.StepIndex() != i {
			t.Fatalf("step index %d, want %d", sess.StepIndex(), i)
		}
		active, err := sess.Step()
		if err != nil {
			t.Fatal(err)
		}
		if active != 16 || sess.LastActive() != 16 {
			t.Errorf("step %d: active %d, want 16", i, active)
		}
	}

	if !sess.Done() {
		t.Error("session should be done")
	}
	if _, err := sess.Step(); !errors.Is(err, ErrRunFinished) {
		t.Errorf("expected ErrRunFinished, got %v", err)
	}

	result, err := sess.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if result.ActiveSteps != 48 {
		t.Errorf("expected 48 active steps, got %d", result.ActiveSteps)
	}
	if _, err := sess.Finish(); !errors.Is(err, ErrRunFinished) {
		t.Errorf("second Finish should fail, got %v", err)
	}
}

func TestSimulatorZeroSteps(t *testing.T) {
	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 0
	initial := lattice(8)

	result, err := New(compute.NewCPUBackend(1), nil).Run(context.Background(), initial, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.ActiveFraction() != 0 {
		t.Errorf("expected 0 active fraction, got %f", result.ActiveFraction())
	}
	for i := range initial {
		if result.Particles[i] != initial[i] {
			t.Fatalf("particle %d changed without stepping", i)
		}
	}
}

func TestSimulatorRejectsDivergedState(t *testing.T) {
	initial := lattice(16)
	initial[5].Pos[1] = math.NaN()

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 3

	result, err := New(compute.NewCPUBackend(2), nil).Run(context.Background(), initial, cfg)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if result != nil {
		t.Error("expected no result for a diverged run")
	}

	var runErr *dynamo.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *dynamo.RunError, got %T", err)
	}
	if runErr.Step != 3 {
		t.Errorf("error reported at step %d, want 3", runErr.Step)
	}
}

func TestSimulatorRejectsInfiniteVelocity(t *testing.T) {
	initial := lattice(8)
	initial[0].Vel[0] = math.Inf(1)

	cfg := dynamo.DefaultRunConfig()
	cfg.Steps = 1

	_, err := New(compute.NewCPUBackend(1), nil).Run(context.Background(), initial, cfg)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

type cleanupBackend struct {
	compute.Backend
	cleaned int
}

func (b *cleanupBackend) Cleanup() { b.cleaned++ }

func TestSimulatorCloseReleasesBackend(t *testing.T) {
	b := &cleanupBackend{Backend: compute.NewCPUBackend(1)}
	s := New(b, nil)

	if _, err := s.Run(context.Background(), lattice(8), dynamo.DefaultRunConfig()); err != nil {
		t.Fatal(err)
	}
	if b.cleaned != 0 {
		t.Fatal("backend released before Close")
	}

	s.Close()
	if b.cleaned != 1 {
		t.Errorf("expected one cleanup, got %d", b.cleaned)
	}
}
