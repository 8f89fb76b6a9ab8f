package compositor

import (
	"image/color"

	"github.com/inkwellpress/inkwell/internal/badge"
	"github.com/inkwellpress/inkwell/internal/canvas"
	"github.com/inkwellpress/inkwell/internal/layout"
)

// Layout holds every position, size and colour used to draw a cover.
type Layout struct {
	Width  int
	Height int

	// Margin is the horizontal inset for wrapped text.
	Margin float64
	// TitleTopRatio places the top of the title at Height*TitleTopRatio.
	TitleTopRatio float64
	// LineHeightRatio multiplies the font size to get the line advance.
	LineHeightRatio float64
	// SectionSpacing is added after the title and subtitle blocks.
	SectionSpacing float64

	TitleFloor    float64
	SubtitleFloor float64
	AuthorFloor   float64
	FitStep       float64

	TaglineSize float64

	// AuthorBaseline is the fixed baseline of the author line.
	AuthorBaseline float64
	// AuthorInset is the distance from the right edge for right alignment.
	AuthorInset float64

	BadgeCenter canvas.Point
	BadgeRadius float64
	Badge       badge.Theme

	Family        string
	TextColor     color.NRGBA
	AccentColor   color.NRGBA
	SubtitleColor color.NRGBA

	// Shadow is applied to every piece of cover text.
	Shadow canvas.Shadow
}

// DefaultLayout is the 1200x1600 cover layout.
func DefaultLayout() Layout {
	return Layout{
		Width:           1200,
		Height:          1600,
		Margin:          80,
		TitleTopRatio:   0.12,
		LineHeightRatio: 1.2,
		SectionSpacing:  28,
		TitleFloor:      20,
		SubtitleFloor:   15,
		AuthorFloor:     18,
		FitStep:         2,
		TaglineSize:     30,
		AuthorBaseline:  1540,
		AuthorInset:     60,
		BadgeCenter:     canvas.Pt(200, 1400),
		BadgeRadius:     130,
		Badge:           badge.DefaultTheme(),
		Family:          layout.FamilyGo,
		TextColor:       color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		SubtitleColor:   color.NRGBA{R: 0xF2, G: 0xF2, B: 0xF2, A: 0xFF},
		AccentColor:     color.NRGBA{R: 0xF4, G: 0xC5, B: 0x42, A: 0xFF},
		Shadow: canvas.Shadow{
			Color:   color.NRGBA{A: 0xB3},
			OffsetX: 3,
			OffsetY: 3,
			Blur:    4,
		},
	}
}

// MaxTextWidth is the width available to wrapped text.
func (l Layout) MaxTextWidth() int {
	return l.Width - int(2*l.Margin)
}

// TitleTop is the y of the first title line.
func (l Layout) TitleTop() float64 {
	return float64(l.Height) * l.TitleTopRatio
}
