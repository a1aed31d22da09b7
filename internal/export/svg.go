// Package export renders stored trajectories for use outside the terminal.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var ErrTooFewPoints = errors.New("export: need at least two points")

type SVGOptions struct {
	Width, Height int
	Stroke        string
	// BodyRadius draws the central body as a filled disc at the origin
	// when positive. Same units as the trajectory.
	BodyRadius float64
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 600, Height: 600, Stroke: "#00ff00"}
}

// TrajectorySVG writes the planar projection (xs[i], ys[i]) as an SVG path.
// Both axes share one scale so circular orbits stay circular.
func TrajectorySVG(w io.Writer, xs, ys []float64, opts SVGOptions) error {
	if len(xs) < 2 || len(xs) != len(ys) {
		return ErrTooFewPoints
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	if opts.BodyRadius > 0 {
		minX, maxX = min(minX, -opts.BodyRadius), max(maxX, opts.BodyRadius)
		minY, maxY = min(minY, -opts.BodyRadius), max(maxY, opts.BodyRadius)
	}

	span := max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	// 10% padding
	pad := span * 0.1
	span += 2 * pad
	scale := float64(min(opts.Width, opts.Height)) / span
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2

	toPx := func(x, y float64) (float64, float64) {
		px := float64(opts.Width)/2 + (x-cx)*scale
		py := float64(opts.Height)/2 - (y-cy)*scale
		return px, py
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)

	if opts.BodyRadius > 0 {
		ox, oy := toPx(0, 0)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="#1f4e9c"/>
`, ox, oy, opts.BodyRadius*scale)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, opts.Stroke)
	for i := range xs {
		px, py := toPx(xs[i], ys[i])
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", px, py)
		}
	}
	sb.WriteString(`"/>
</svg>
`)

	_, err := io.WriteString(w, sb.String())
	return err
}
