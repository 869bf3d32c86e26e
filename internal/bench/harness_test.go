package bench_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dilasim/internal/bench"
	"github.com/san-kum/dilasim/internal/cloud"
	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/config"
	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/sim"
)

var _ = Describe("Harness", func() {
	var (
		harness *bench.Harness
		initial []dynamo.Particle
		cfg     dynamo.RunConfig
	)

	BeforeEach(func() {
		harness = bench.New(sim.New(compute.NewCPUBackend(4), nil), nil)

		spec := cloud.DefaultSpec()
		spec.Particles = 400
		spec.Radius = 20
		initial = cloud.Sphere(spec)

		cfg = dynamo.DefaultRunConfig()
		cfg.Steps = 60
	})

	Describe("Sweep", func() {
		It("reports one row per sensitivity in order", func() {
			report, err := harness.Sweep(context.Background(), initial, cfg, []float64{100, 10, 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Rows).To(HaveLen(3))
			Expect(report.Rows[0].Sensitivity).To(Equal(100.0))
			Expect(report.Rows[1].Sensitivity).To(Equal(10.0))
			Expect(report.Rows[2].Sensitivity).To(Equal(1.0))
			Expect(report.Particles).To(Equal(400))
			Expect(report.Steps).To(Equal(60))
			Expect(report.Baseline.MeasuredActivePct).To(Equal(100.0))
		})

		It("does not mutate the initial particles", func() {
			before := dynamo.Clone(initial)
			_, err := harness.Sweep(context.Background(), initial, cfg, []float64{5})
			Expect(err).NotTo(HaveOccurred())
			Expect(initial).To(Equal(before))
		})

		It("reproduces the baseline exactly when nothing can sleep", func() {
			report, err := harness.Sweep(context.Background(), initial, cfg, []float64{0})
			Expect(err).NotTo(HaveOccurred())

			row := report.Rows[0]
			Expect(row.RMSE).To(BeZero())
			Expect(row.MeasuredActivePct).To(Equal(100.0))
		})

		It("loses accuracy and activity when every particle sleeps", func() {
			report, err := harness.Sweep(context.Background(), initial, cfg, []float64{0, 1e12})
			Expect(err).NotTo(HaveOccurred())

			awake, asleep := report.Rows[0], report.Rows[1]
			Expect(asleep.MeasuredActivePct).To(BeNumerically("<", 5))
			Expect(asleep.RMSE).To(BeNumerically(">", 0))
			Expect(asleep.RMSE).To(BeNumerically(">=", awake.RMSE))
			Expect(asleep.MeasuredActivePct).To(BeNumerically("<=", awake.MeasuredActivePct))
		})

		It("derives the estimated activity from the speedup", func() {
			report, err := harness.Sweep(context.Background(), initial, cfg, []float64{25})
			Expect(err).NotTo(HaveOccurred())

			row := report.Rows[0]
			Expect(row.EstimatedActivePct).To(BeNumerically("~", 100/row.Speedup, 1e-9))
		})

		It("produces identical accuracy on repeated sweeps", func() {
			a, err := harness.Sweep(context.Background(), initial, cfg, []float64{10})
			Expect(err).NotTo(HaveOccurred())

			harness.Repeats = 2
			b, err := harness.Sweep(context.Background(), initial, cfg, []float64{10})
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Rows[0].RMSE).To(Equal(a.Rows[0].RMSE))
			Expect(b.Rows[0].MeasuredActivePct).To(Equal(a.Rows[0].MeasuredActivePct))
		})

		It("returns only the baseline for an empty sweep", func() {
			report, err := harness.Sweep(context.Background(), initial, cfg, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows).To(BeEmpty())
		})

		It("refuses to start once the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := harness.Sweep(ctx, initial, cfg, bench.DefaultSensitivities)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("surfaces invalid configurations", func() {
			cfg.Dt = 0
			_, err := harness.Sweep(context.Background(), initial, cfg, []float64{1})
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})
	})

	Describe("Sweep over the default configuration", func() {
		var report *bench.Report

		BeforeEach(func() {
			def := config.DefaultConfig()
			def.Cloud.Particles = 500
			def.Run.Steps = 60

			var err error
			initial, err = cloud.Generate(def.Cloud)
			Expect(err).NotTo(HaveOccurred())
			cfg, err = def.RunConfig()
			Expect(err).NotTo(HaveOccurred())

			report, err = harness.Sweep(context.Background(), initial, cfg, def.Sweep.Sensitivities)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows).To(HaveLen(len(bench.DefaultSensitivities)))
		})

		It("spans sleepy to fully awake", func() {
			first, last := report.Rows[0], report.Rows[len(report.Rows)-1]
			Expect(first.MeasuredActivePct).To(BeNumerically("<", 20))
			Expect(last.MeasuredActivePct).To(BeNumerically(">", 90))
		})

		It("gains activity as the threshold falls", func() {
			for i := 1; i < len(report.Rows); i++ {
				Expect(report.Rows[i].MeasuredActivePct).To(BeNumerically(">=", report.Rows[i-1].MeasuredActivePct),
					"sensitivity %v", report.Rows[i].Sensitivity)
			}
		})

		It("gains accuracy as the threshold falls", func() {
			for i := 1; i < len(report.Rows); i++ {
				Expect(report.Rows[i].RMSE).To(BeNumerically("<=", report.Rows[i-1].RMSE),
					"sensitivity %v", report.Rows[i].Sensitivity)
			}
		})
	})

	Describe("CompareRuns", func() {
		It("rejects runs over different particle counts", func() {
			baseline := &sim.Result{Particles: make([]dynamo.Particle, 2), Steps: 1, Elapsed: time.Second}
			run := &sim.Result{Particles: make([]dynamo.Particle, 3), Steps: 1, Elapsed: time.Second}

			_, err := bench.CompareRuns(1, baseline, run)
			Expect(err).To(MatchError(dynamo.ErrLengthMismatch))
		})

		It("fills every column", func() {
			baseline := &sim.Result{
				Particles: []dynamo.Particle{{Pos: dynamo.Vec3{0, 0, 0}}, {Pos: dynamo.Vec3{1, 0, 0}}},
				Steps:     4, ActiveSteps: 8, Elapsed: 2 * time.Second,
			}
			run := &sim.Result{
				Particles: []dynamo.Particle{{Pos: dynamo.Vec3{0, 2, 0}}, {Pos: dynamo.Vec3{1, 0, 0}}},
				Steps:     4, ActiveSteps: 2, Elapsed: time.Second,
			}

			row, err := bench.CompareRuns(50, baseline, run)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Sensitivity).To(Equal(50.0))
			Expect(row.Speedup).To(Equal(2.0))
			Expect(row.EstimatedActivePct).To(Equal(50.0))
			Expect(row.MeasuredActivePct).To(Equal(25.0))
			Expect(row.RMSE).To(BeNumerically("~", math.Sqrt(2), 1e-12))
		})
	})

	Describe("Speedup", func() {
		It("is the runtime ratio", func() {
			Expect(bench.Speedup(3*time.Second, time.Second)).To(Equal(3.0))
		})

		It("falls back to 1 for zero durations", func() {
			Expect(bench.Speedup(0, time.Second)).To(Equal(1.0))
			Expect(bench.Speedup(time.Second, 0)).To(Equal(1.0))
		})
	})

	Describe("Report", func() {
		report := &bench.Report{Rows: []bench.Row{
			{Sensitivity: 100, Speedup: 8, RMSE: 4},
			{Sensitivity: 10, Speedup: 3, RMSE: 0.5},
			{Sensitivity: 1, Speedup: 1.2, RMSE: 0.01},
		}}

		It("picks the fastest row within the error budget", func() {
			row, ok := report.Best(1)
			Expect(ok).To(BeTrue())
			Expect(row.Sensitivity).To(Equal(10.0))
		})

		It("finds nothing when the budget is too tight", func() {
			_, ok := report.Best(0.001)
			Expect(ok).To(BeFalse())
		})

		It("splits rows into series", func() {
			s, speed, rmse, _ := report.Series()
			Expect(s).To(Equal([]float64{100, 10, 1}))
			Expect(speed).To(Equal([]float64{8, 3, 1.2}))
			Expect(rmse).To(Equal([]float64{4, 0.5, 0.01}))
		})
	})
})
