// Package report renders evaluation results as images
package report

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Image dimensions and margin, in pixels
const (
	Width  int     = 800
	Height int     = 400
	Margin float64 = 20
)

var (
	background = color.RGBA{255, 255, 255, 255}
	axis       = color.RGBA{40, 40, 40, 255}
	positive   = color.RGBA{70, 130, 180, 255}
	negative   = color.RGBA{205, 92, 92, 255}
	grass      = color.RGBA{34, 139, 34, 255}
)

// RenderScores draws a bar chart of per-episode scores, overlaid with
// a polyline of the per-episode grass proportions, and saves it as a
// PNG at filename.
//
// Bars share a single scale, chosen so that the range spanning the
// lowest score, the highest score, and zero fills the plot height. The
// zero line therefore sits at the top of the plot when every score is
// negative and at the bottom when every score is positive. Grass proportions are drawn on
// a fixed [0, 1] scale spanning the full plot height. If
// grassProportions is nil, only the scores are drawn.
func RenderScores(filename string, scores, grassProportions []float64) error {
	if len(scores) == 0 {
		return fmt.Errorf("renderScores: no scores to render: %w",
			env.ErrEmptyInput)
	}
	if grassProportions != nil && len(grassProportions) != len(scores) {
		return fmt.Errorf("renderScores: %v grass proportions for %v "+
			"scores: %w", len(grassProportions), len(scores),
			env.ErrInvalidConfiguration)
	}

	dc := gg.NewContext(Width, Height)
	dc.SetColor(background)
	dc.Clear()

	plotW := float64(Width) - 2*Margin
	plotH := float64(Height) - 2*Margin
	barW := plotW / float64(len(scores))

	// Place the zero line so that positive and negative bars share the
	// same scale
	hi := floats.Max(scores)
	lo := floats.Min(scores)
	if hi < 0 {
		hi = 0
	}
	if lo > 0 {
		lo = 0
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	zero := Margin + plotH*hi/span

	for i, score := range scores {
		h := plotH * score / span
		x := Margin + float64(i)*barW
		if score >= 0 {
			dc.SetColor(positive)
			dc.DrawRectangle(x, zero-h, barW*0.8, h)
		} else {
			dc.SetColor(negative)
			dc.DrawRectangle(x, zero, barW*0.8, -h)
		}
		dc.Fill()
	}

	dc.SetColor(axis)
	dc.SetLineWidth(2.0)
	dc.DrawLine(Margin, zero, Margin+plotW, zero)
	dc.Stroke()

	if grassProportions != nil {
		dc.ClearPath()
		for i, p := range grassProportions {
			x := Margin + (float64(i)+0.4)*barW
			y := Margin + plotH*(1-p)
			dc.LineTo(x, y)
		}
		dc.SetColor(grass)
		dc.SetLineWidth(3.0)
		dc.Stroke()
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("renderScores: could not save image: %w", err)
	}
	return nil
}
