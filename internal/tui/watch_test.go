package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dilasim/internal/cloud"
	"github.com/san-kum/dilasim/internal/compute"
	"github.com/san-kum/dilasim/internal/dynamo"
	"github.com/san-kum/dilasim/internal/sim"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

var _ = Describe("Watch model", func() {
	var (
		m   Model
		cfg dynamo.RunConfig
	)

	BeforeEach(func() {
		spec := cloud.DefaultSpec()
		spec.Particles = 200
		spec.Radius = 10
		initial := cloud.Sphere(spec)

		cfg = dynamo.DefaultRunConfig()
		cfg.Steps = 12
		cfg.Workers = 1

		var err error
		m, err = NewModel(sim.New(compute.NewCPUBackend(1), nil), initial, cfg, 5)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an invalid run configuration", func() {
		bad := cfg
		bad.Dt = 0
		_, err := NewModel(sim.New(compute.NewCPUBackend(1), nil), nil, bad, 1)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("advances a frame of steps per tick", func() {
		m, cmd := send(m, tickMsg(time.Now()))
		Expect(m.StepIndex()).To(Equal(5))
		Expect(m.History()).To(HaveLen(5))
		Expect(cmd).NotTo(BeNil())
	})

	It("finishes and stops ticking at the last step", func() {
		var cmd tea.Cmd
		for i := 0; i < 3; i++ {
			m, cmd = send(m, tickMsg(time.Now()))
		}
		Expect(m.Done()).To(BeTrue())
		Expect(m.StepIndex()).To(Equal(12))
		Expect(cmd).To(BeNil())
		Expect(m.Err()).NotTo(HaveOccurred())
		Expect(m.Result()).NotTo(BeNil())
		Expect(m.Result().Steps).To(Equal(12))
		Expect(m.Result().Particles).To(HaveLen(200))

		m, _ = send(m, tickMsg(time.Now()))
		Expect(m.StepIndex()).To(Equal(12))
	})

	It("does not step while paused", func() {
		m, _ = send(m, key(" "))
		Expect(m.Paused()).To(BeTrue())

		m, _ = send(m, tickMsg(time.Now()))
		Expect(m.StepIndex()).To(Equal(0))

		m, _ = send(m, key("n"))
		Expect(m.StepIndex()).To(Equal(1))
	})

	It("changes the frame size with + and -", func() {
		m, _ = send(m, key("+"))
		m, _ = send(m, tickMsg(time.Now()))
		Expect(m.StepIndex()).To(Equal(10))

		m, _ = send(m, key("-"))
		m, _ = send(m, key("-"))
		m, _ = send(m, key("-"))
		m, _ = send(m, tickMsg(time.Now()))
		Expect(m.StepIndex()).To(Equal(11))
	})

	It("quits on q and keeps the partial result", func() {
		m, _ = send(m, tickMsg(time.Now()))
		m, cmd := send(m, key("q"))
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))
		Expect(m.Done()).To(BeTrue())
		Expect(m.Result().Steps).To(Equal(5))
	})

	It("renders the header, progress and key hints", func() {
		m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 30})
		m, _ = send(m, tickMsg(time.Now()))

		view := m.View()
		Expect(view).To(ContainSubstring("d i l a s i m"))
		Expect(view).To(ContainSubstring("step 5/12"))
		Expect(view).To(ContainSubstring("q quit"))
		Expect(strings.Count(view, "\n")).To(BeNumerically(">=", 20))
	})
})

var _ = Describe("project", func() {
	It("returns an empty string for a zero-sized canvas", func() {
		Expect(project(nil, 0, 10, 1)).To(BeEmpty())
	})

	It("draws a blank canvas with the requested shape", func() {
		out := project(nil, 8, 4, 1)
		lines := strings.Split(out, "\n")
		Expect(lines).To(HaveLen(4))
		for _, l := range lines {
			Expect(l).To(Equal("        "))
		}
	})

	It("plots a particle at the origin in the middle of the canvas", func() {
		ps := []dynamo.Particle{{Pos: dynamo.Vec3{0, 0, 0}}}
		lines := strings.Split(project(ps, 10, 5, 1), "\n")
		Expect(lines[2]).To(ContainSubstring("."))
		Expect(lines[0]).To(Equal(strings.Repeat(" ", 10)))
	})

	It("skips particles outside the extent", func() {
		ps := []dynamo.Particle{{Pos: dynamo.Vec3{50, 50, 0}}}
		out := project(ps, 10, 5, 1)
		Expect(strings.TrimSpace(out)).To(BeEmpty())
	})
})

var _ = Describe("extentOf", func() {
	It("takes the largest planar coordinate", func() {
		ps := []dynamo.Particle{
			{Pos: dynamo.Vec3{1, -3, 100}},
			{Pos: dynamo.Vec3{-2, 0.5, 0}},
		}
		Expect(extentOf(ps)).To(Equal(3.0))
	})
})
