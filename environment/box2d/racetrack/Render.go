package racetrack

import (
	"image/color"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	"gorgonia.org/tensor"
)

// Pixels per Box2D unit
const Zoom float64 = 3.0

var (
	GrassColour    = color.RGBA{R: 102, G: 204, B: 102, A: 255}
	RoadColour     = color.RGBA{R: 102, G: 102, B: 102, A: 255}
	ObstacleColour = color.RGBA{R: 230, G: 140, B: 50, A: 255}
	HullColour     = color.RGBA{R: 204, G: 0, B: 0, A: 255}
	WheelColour    = color.RGBA{A: 255}
)

// worldToPixel converts world coordinates to pixel coordinates of a
// view centred on the car, with y pointing up
func (r *Racetrack) worldToPixel(v box2d.B2Vec2) [2]float64 {
	centre := r.car.Hull.GetPosition()
	h, w := r.obsSpec.Shape[0], r.obsSpec.Shape[1]

	pixelX := float64(w)/2 + Zoom*(v.X-centre.X)
	pixelY := float64(h)/2 - Zoom*(v.Y-centre.Y)

	return [2]float64{pixelX, pixelY}
}

// render draws the track and car and returns the image as an H×W×C
// tensor with values in [0, 255]
func (r *Racetrack) render() *tensor.Dense {
	h, w, channels := r.obsSpec.Shape[0], r.obsSpec.Shape[1],
		r.obsSpec.Channels()

	dc := gg.NewContext(w, h)
	dc.SetColor(GrassColour)
	dc.Clear()

	for _, t := range r.track {
		colour := RoadColour
		if t.Obstacle {
			colour = ObstacleColour
		}
		r.fillBody(dc, t.Body, colour)
	}
	for _, wheel := range r.wheels {
		r.fillBody(dc, wheel, WheelColour)
	}
	r.fillBody(dc, r.car.Hull, HullColour)

	img := dc.Image()
	data := make([]float64, h*w*channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			red, green, blue, _ := img.At(x, y).RGBA()
			i := (y*w + x) * channels
			data[i] = float64(red >> 8)
			data[i+1] = float64(green >> 8)
			data[i+2] = float64(blue >> 8)
		}
	}

	return tensor.New(tensor.WithShape(h, w, channels),
		tensor.WithBacking(data))
}

// fillBody fills each polygon fixture of body
func (r *Racetrack) fillBody(dc *gg.Context, body *box2d.B2Body,
	colour color.Color) {
	for fix := body.GetFixtureList(); fix != nil; fix = fix.GetNext() {
		shape, ok := fix.GetShape().(*box2d.B2PolygonShape)
		if !ok {
			continue
		}

		dc.ClearPath()
		trans := body.GetTransform()
		for i := 0; i < shape.M_count; i++ {
			vertex := box2d.B2TransformVec2Mul(trans, shape.M_vertices[i])
			point := r.worldToPixel(vertex)
			dc.LineTo(point[0], point[1])
		}
		dc.ClosePath()
		dc.SetColor(colour)
		dc.Fill()
	}
}
