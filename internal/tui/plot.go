package tui

import (
	"strings"

	"github.com/motionlab/kinema/pkg/core"
)

// Trail glyphs, newest to oldest.
const (
	glyphHead = '●'
	glyphWarm = '•'
	glyphCold = '·'
)

// RenderTrail draws retained frames as a fading character plot.
// Projectile trails plot x against height; the oscillating modules plot
// displacement over simulation time.
func RenderTrail(trail []core.Frame, w, h int) string {
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}

	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = make([]rune, w)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	if len(trail) > 0 {
		spatial := false
		for _, f := range trail {
			if f.X != 0 {
				spatial = true
				break
			}
		}

		minX, maxX := axisX(trail[0], spatial), axisX(trail[0], spatial)
		minY, maxY := axisY(trail[0], spatial), axisY(trail[0], spatial)
		for _, f := range trail {
			minX = min(minX, axisX(f, spatial))
			maxX = max(maxX, axisX(f, spatial))
			minY = min(minY, axisY(f, spatial))
			maxY = max(maxY, axisY(f, spatial))
		}
		if maxX == minX {
			maxX = minX + 1
		}
		if maxY == minY {
			maxY = minY + 1
		}

		for i, f := range trail {
			col := int(float64(w-1) * (axisX(f, spatial) - minX) / (maxX - minX))
			row := h - 1 - int(float64(h-1)*(axisY(f, spatial)-minY)/(maxY-minY))
			grid[row][col] = ageGlyph(i, len(trail))
		}
	}

	lines := make([]string, h)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

func ageGlyph(idx, total int) rune {
	switch {
	case idx == total-1:
		return glyphHead
	case idx >= total-total/4-1:
		return glyphWarm
	default:
		return glyphCold
	}
}

func axisX(f core.Frame, spatial bool) float64 {
	if spatial {
		return f.X
	}
	return f.SimTime
}

func axisY(f core.Frame, spatial bool) float64 {
	if spatial {
		return f.Y
	}
	return f.Displacement
}
