package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// previewRamp orders glyphs from fast escape to bounded.
const previewRamp = " .:-=+*#%@"

// plane is the rectangle of the complex plane a preview covers.
type plane struct {
	minX, minY, maxX, maxY float64
}

var (
	escapePlane = plane{minX: -2.5, minY: -1.25, maxX: 1.0, maxY: 1.25}
	juliaPlane  = plane{minX: -1.6, minY: -1.0, maxX: 1.6, maxY: 1.0}
)

var previewPalette = []lipgloss.Color{
	"#1B1B3A", "#2E2A6B", "#433B9C", "#5A4FCF", "#7D56F4",
	"#A06CF0", "#C884E8", "#EAA0D8", "#F7C6A3", "#FAFAFA",
}

// renderPreview samples one value per character cell, top row first, and
// maps count/maxIter onto previewRamp.
func renderPreview(cols, rows int, p plane, maxIter float64, sample func(x, y float64) (float64, error)) (string, error) {
	if cols <= 0 || rows <= 0 {
		return "", nil
	}
	dx := (p.maxX - p.minX) / float64(cols)
	dy := (p.maxY - p.minY) / float64(rows)
	top := len(previewRamp) - 1

	var b strings.Builder
	b.Grow((cols + 1) * rows)
	for r := 0; r < rows; r++ {
		y := p.maxY - (float64(r)+0.5)*dy
		for c := 0; c < cols; c++ {
			x := p.minX + (float64(c)+0.5)*dx
			v, err := sample(x, y)
			if err != nil {
				return "", err
			}
			idx := 0
			if maxIter > 0 {
				idx = int(v / maxIter * float64(top))
			}
			idx = max(0, min(idx, top))
			b.WriteByte(previewRamp[idx])
		}
		if r < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// colorizePreview paints each glyph with the palette entry of its ramp level.
func colorizePreview(s string) string {
	styles := make(map[byte]lipgloss.Style, len(previewRamp))
	for i := 0; i < len(previewRamp); i++ {
		styles[previewRamp[i]] = lipgloss.NewStyle().Foreground(previewPalette[i])
	}

	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j := 0; j < len(line); j++ {
			b.WriteString(styles[line[j]].Render(line[j : j+1]))
		}
	}
	return b.String()
}

// previewSize fits a preview into a terminal of the given size, leaving room
// for the header and help lines.
func previewSize(width, height int) (cols, rows int) {
	cols = min(max(width-4, 16), 96)
	rows = min(max(height-14, 6), 36)
	return cols, rows
}
