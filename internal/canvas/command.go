// Package canvas executes explicit draw commands against an RGBA surface.
// Every command carries its complete style, so the result never depends on
// state left behind by an earlier command.
package canvas

import (
	"image"
	"image/color"

	"github.com/inkwellpress/inkwell/internal/layout"
)

// Align is the horizontal anchor of a text command's X coordinate.
type Align int

// Horizontal anchors.
const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Baseline is the vertical anchor of a text command's Y coordinate.
type Baseline int

// Vertical anchors.
const (
	// BaselineTop places the top of the line box (the ascent) at Y.
	BaselineTop Baseline = iota
	// BaselineMiddle centres the glyph body on Y.
	BaselineMiddle
	// BaselineAlphabetic places the glyph baseline at Y.
	BaselineAlphabetic
)

// Shadow is a blurred, offset copy of the text drawn beneath it.
type Shadow struct {
	Color   color.NRGBA
	OffsetX float64
	OffsetY float64
	Blur    float64 // Gaussian sigma in pixels
}

// TextStyle is the complete style of one text draw.
type TextStyle struct {
	Font     layout.Font
	Color    color.NRGBA
	Align    Align
	Baseline Baseline
	Shadow   Shadow
}

// Command is a single draw operation.
type Command interface {
	command()
}

// Background scales Image to fill the canvas, cropping from the centre.
type Background struct {
	Image image.Image
}

// FillPath fills a closed path with a solid colour.
type FillPath struct {
	Path  Path
	Color color.NRGBA
}

// Text draws a single line of text.
type Text struct {
	Text  string
	At    Point
	Style TextStyle
}

func (Background) command() {}
func (FillPath) command()   {}
func (Text) command()       {}
