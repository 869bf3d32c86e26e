package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/dilasim/internal/dynamo"
)

const maxPlotted = 20000

var densityChars = []rune{' ', '.', ':', '*', '#'}

type cell struct {
	a, b   int
	active int
}

// project draws an x-y projection of ps into a w×h grid centred on the
// origin, scaled so that extent fills the shorter side. Cells are coloured by
// the majority type and brightened when any particle in them fired this step.
func project(ps []dynamo.Particle, w, h int, extent float64) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	grid := make([]cell, w*h)

	if extent <= 0 {
		extent = 1
	}
	// Terminal cells are roughly twice as tall as wide.
	sx := float64(w) / (2 * extent)
	sy := float64(h) / (2 * extent)
	if sx/2 < sy {
		sy = sx / 2
	} else {
		sx = sy * 2
	}

	stride := 1
	if len(ps) > maxPlotted {
		stride = len(ps) / maxPlotted
	}
	for i := 0; i < len(ps); i += stride {
		p := ps[i]
		cx := int(math.Floor(float64(w)/2 + p.Pos[0]*sx))
		cy := int(math.Floor(float64(h)/2 - p.Pos[1]*sy))
		if cx < 0 || cx >= w || cy < 0 || cy >= h {
			continue
		}
		c := &grid[cy*w+cx]
		if p.Type < 0.5 {
			c.a++
		} else {
			c.b++
		}
		if p.IsActive() {
			c.active++
		}
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grid[y*w+x]
			n := c.a + c.b
			if n == 0 {
				b.WriteByte(' ')
				continue
			}
			idx := min(n, len(densityChars)-1)
			b.WriteString(cellStyle(c).Render(string(densityChars[idx])))
		}
		if y < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func cellStyle(c cell) lipgloss.Style {
	switch {
	case c.a >= c.b && c.active > 0:
		return cyan
	case c.a >= c.b:
		return dimCyan
	case c.active > 0:
		return magenta
	default:
		return dimMagenta
	}
}

// extentOf is the largest |x| or |y| in ps.
func extentOf(ps []dynamo.Particle) float64 {
	var e float64
	for _, p := range ps {
		e = max(e, math.Abs(p.Pos[0]), math.Abs(p.Pos[1]))
	}
	return e
}
