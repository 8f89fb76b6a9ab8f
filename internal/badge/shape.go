// Package badge draws the "bonus" sticker: a vector shape with a count and
// label centred on it.
package badge

import (
	"fmt"
	"math"
	"strings"

	"github.com/inkwellpress/inkwell/internal/canvas"
)

// Kind names a badge shape as stored on a project.
type Kind string

// Shape kinds.
const (
	KindStar   Kind = "star"
	KindCircle Kind = "circle"
	KindBurst  Kind = "burst"
	KindSeal   Kind = "seal"
	KindRibbon Kind = "ribbon"
	KindShield Kind = "shield"
	KindNone   Kind = "none"
)

// Kinds lists every accepted kind.
var Kinds = []Kind{KindStar, KindCircle, KindBurst, KindSeal, KindRibbon, KindShield, KindNone}

// Shape is a closed set of badge outlines. The unexported method keeps
// the set closed to this package.
type Shape interface {
	// Outline returns the closed path of the shape around center.
	Outline(center canvas.Point, radius float64) canvas.Path
	shape()
}

// Star is a spiked polygon alternating between the outer radius and
// radius*InnerRatio. Burst and seal are stars with more, shallower spikes.
type Star struct {
	Spikes     int
	InnerRatio float64
}

// Circle is a plain disc.
type Circle struct{}

// Shield has a flat top, straight sides and a curved point at the bottom.
type Shield struct{}

// Ribbon is a wide banner with a notch cut into each end.
type Ribbon struct{}

func (Star) shape()   {}
func (Circle) shape() {}
func (Shield) shape() {}
func (Ribbon) shape() {}

// Parse maps a kind to its shape. KindNone and the empty string return a
// nil shape, which renders nothing.
func Parse(kind string) (Shape, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindStar:
		return Star{Spikes: 5, InnerRatio: 0.5}, nil
	case KindBurst:
		return Star{Spikes: 16, InnerRatio: 0.75}, nil
	case KindSeal:
		return Star{Spikes: 28, InnerRatio: 0.88}, nil
	case KindCircle:
		return Circle{}, nil
	case KindShield:
		return Shield{}, nil
	case KindRibbon:
		return Ribbon{}, nil
	case KindNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown badge shape %q", kind)
	}
}

// Outline starts at the top spike and walks clockwise.
func (s Star) Outline(c canvas.Point, r float64) canvas.Path {
	spikes := max(s.Spikes, 3)
	inner := r * s.InnerRatio
	step := math.Pi / float64(spikes)

	var p canvas.Path
	for i := range spikes * 2 {
		rad := r
		if i%2 == 1 {
			rad = inner
		}
		a := -math.Pi/2 + float64(i)*step
		pt := canvas.Pt(c.X+rad*math.Cos(a), c.Y+rad*math.Sin(a))
		if i == 0 {
			p = p.MoveTo(pt)
		} else {
			p = p.LineTo(pt)
		}
	}
	return p.Close()
}

// kappa places cubic control points so four segments approximate a circle.
const kappa = 0.5522847498

// Outline approximates the circle with four cubic segments.
func (Circle) Outline(c canvas.Point, r float64) canvas.Path {
	k := r * kappa
	return canvas.Path{}.
		MoveTo(canvas.Pt(c.X, c.Y-r)).
		CubeTo(canvas.Pt(c.X+k, c.Y-r), canvas.Pt(c.X+r, c.Y-k), canvas.Pt(c.X+r, c.Y)).
		CubeTo(canvas.Pt(c.X+r, c.Y+k), canvas.Pt(c.X+k, c.Y+r), canvas.Pt(c.X, c.Y+r)).
		CubeTo(canvas.Pt(c.X-k, c.Y+r), canvas.Pt(c.X-r, c.Y+k), canvas.Pt(c.X-r, c.Y)).
		CubeTo(canvas.Pt(c.X-r, c.Y-k), canvas.Pt(c.X-k, c.Y-r), canvas.Pt(c.X, c.Y-r)).
		Close()
}

// Outline draws the shield with quadratic curves meeting at the bottom point.
func (Shield) Outline(c canvas.Point, r float64) canvas.Path {
	w := r * 0.85
	top := c.Y - r
	shoulder := c.Y + r*0.15
	return canvas.Path{}.
		MoveTo(canvas.Pt(c.X-w, top)).
		LineTo(canvas.Pt(c.X+w, top)).
		LineTo(canvas.Pt(c.X+w, shoulder)).
		QuadTo(canvas.Pt(c.X+w, c.Y+r*0.75), canvas.Pt(c.X, c.Y+r)).
		QuadTo(canvas.Pt(c.X-w, c.Y+r*0.75), canvas.Pt(c.X-w, shoulder)).
		Close()
}

// Outline draws a banner 2.6r wide and 0.7r tall with V notches at both ends.
func (Ribbon) Outline(c canvas.Point, r float64) canvas.Path {
	hw, hh, notch := r*1.3, r*0.35, r*0.25
	left, right := c.X-hw, c.X+hw
	top, bottom := c.Y-hh, c.Y+hh
	return canvas.Path{}.
		MoveTo(canvas.Pt(left, top)).
		LineTo(canvas.Pt(right, top)).
		LineTo(canvas.Pt(right-notch, c.Y)).
		LineTo(canvas.Pt(right, bottom)).
		LineTo(canvas.Pt(left, bottom)).
		LineTo(canvas.Pt(left+notch, c.Y)).
		Close()
}
