package canvas

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/inkwellpress/inkwell/internal/layout"
)

// ErrNoSurface is returned when a canvas cannot be created or has no face source.
var ErrNoSurface = errors.New("no rendering surface")

// Canvas is an NRGBA surface that draw commands are applied to.
type Canvas struct {
	dst   *image.NRGBA
	faces layout.FaceSource
}

// New allocates a transparent width x height canvas.
func New(width, height int, faces layout.FaceSource) (*Canvas, error) {
	if width <= 0 || height <= 0 || faces == nil {
		return nil, ErrNoSurface
	}
	return &Canvas{
		dst:   image.NewNRGBA(image.Rect(0, 0, width, height)),
		faces: faces,
	}, nil
}

// Image returns the underlying surface.
func (c *Canvas) Image() *image.NRGBA {
	return c.dst
}

// Apply executes commands in order.
func (c *Canvas) Apply(cmds ...Command) error {
	for i, cmd := range cmds {
		var err error
		switch cmd := cmd.(type) {
		case Background:
			err = c.background(cmd)
		case FillPath:
			err = c.fillPath(cmd)
		case Text:
			err = c.text(cmd)
		default:
			err = fmt.Errorf("unsupported command %T", cmd)
		}
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

func (c *Canvas) background(cmd Background) error {
	if cmd.Image == nil {
		return errors.New("background image is nil")
	}
	b := c.dst.Bounds()
	filled := imaging.Fill(cmd.Image, b.Dx(), b.Dy(), imaging.Center, imaging.Lanczos)
	draw.Draw(c.dst, b, filled, image.Point{}, draw.Src)
	return nil
}

func (c *Canvas) fillPath(cmd FillPath) error {
	if cmd.Path.Empty() {
		return nil
	}
	b := c.dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	for _, s := range cmd.Path.segs {
		switch s.kind {
		case segMove:
			z.MoveTo(f32(s.pts[0]))
		case segLine:
			z.LineTo(f32(s.pts[0]))
		case segQuad:
			bx, by := f32(s.pts[0])
			cx, cy := f32(s.pts[1])
			z.QuadTo(bx, by, cx, cy)
		case segCube:
			bx, by := f32(s.pts[0])
			cx, cy := f32(s.pts[1])
			dx, dy := f32(s.pts[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case segClose:
			z.ClosePath()
		}
	}

	z.Draw(c.dst, b, image.NewUniform(cmd.Color), image.Point{})
	return nil
}

func (c *Canvas) text(cmd Text) error {
	if cmd.Text == "" {
		return nil
	}
	face, err := c.faces.Face(cmd.Style.Font)
	if err != nil {
		return err
	}

	dot := origin(face, cmd)

	if sh := cmd.Style.Shadow; sh.Color.A > 0 {
		c.shadow(face, cmd.Text, dot, sh)
	}

	d := &font.Drawer{
		Dst:  c.dst,
		Src:  image.NewUniform(cmd.Style.Color),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(cmd.Text)
	return nil
}

// shadow renders the text alpha into a padded mask, blurs it and composites
// the shadow colour through it at the offset.
func (c *Canvas) shadow(face font.Face, text string, dot fixed.Point26_6, sh Shadow) {
	bounds, _ := font.BoundString(face, text)
	pad := int(math.Ceil(sh.Blur*3)) + 1
	r := image.Rect(
		(dot.X+bounds.Min.X).Floor()-pad,
		(dot.Y+bounds.Min.Y).Floor()-pad,
		(dot.X+bounds.Max.X).Ceil()+pad,
		(dot.Y+bounds.Max.Y).Ceil()+pad,
	)

	mask := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot:  dot.Sub(fixed.P(r.Min.X, r.Min.Y)),
	}
	d.DrawString(text)

	var alpha image.Image = mask
	if sh.Blur > 0 {
		alpha = imaging.Blur(mask, sh.Blur)
	}

	off := image.Pt(int(math.Round(sh.OffsetX)), int(math.Round(sh.OffsetY)))
	draw.DrawMask(c.dst, r.Add(off), image.NewUniform(sh.Color), image.Point{}, alpha, image.Point{}, draw.Over)
}

// origin converts a command's anchor into the glyph origin for font.Drawer.
func origin(face font.Face, cmd Text) fixed.Point26_6 {
	x := toFixed(cmd.At.X)
	y := toFixed(cmd.At.Y)

	switch cmd.Style.Align {
	case AlignCenter:
		x -= font.MeasureString(face, cmd.Text) / 2
	case AlignRight:
		x -= font.MeasureString(face, cmd.Text)
	}

	m := face.Metrics()
	switch cmd.Style.Baseline {
	case BaselineTop:
		y += m.Ascent
	case BaselineMiddle:
		y += (m.Ascent - m.Descent) / 2
	}

	return fixed.Point26_6{X: x, Y: y}
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func f32(p Point) (float32, float32) {
	return float32(p.X), float32(p.Y)
}
