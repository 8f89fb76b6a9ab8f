package badge

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/inkwellpress/inkwell/internal/canvas"
	"github.com/inkwellpress/inkwell/internal/layout"
)

// DefaultLabel is drawn under the count when no label is given.
const DefaultLabel = "BONUS"

// Theme holds badge colours and font sizes. Sizes are fractions of the
// badge radius so the text scales with the shape.
type Theme struct {
	Fill       color.NRGBA
	TextColor  color.NRGBA
	Family     string
	Shadow     canvas.Shadow
	CountScale float64
	LabelScale float64
	// WrappedLabelScale is used for each line when the label breaks in two.
	WrappedLabelScale float64
	RibbonScale       float64
}

// DefaultTheme is a red sticker with white bold text.
func DefaultTheme() Theme {
	return Theme{
		Fill:              color.NRGBA{R: 0xD7, G: 0x26, B: 0x3D, A: 0xFF},
		TextColor:         color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Family:            layout.FamilyGo,
		Shadow:            canvas.Shadow{Color: color.NRGBA{A: 0x99}, OffsetX: 1, OffsetY: 2, Blur: 2},
		CountScale:        0.55,
		LabelScale:        0.22,
		WrappedLabelScale: 0.17,
		RibbonScale:       0.26,
	}
}

// Render returns the commands for one badge: the shape fill followed by its
// text. A nil shape or a count below one renders nothing.
func Render(s Shape, center canvas.Point, radius float64, count int, label string, theme Theme) []canvas.Command {
	if s == nil || count <= 0 {
		return nil
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultLabel
	}

	cmds := []canvas.Command{
		canvas.FillPath{Path: s.Outline(center, radius), Color: theme.Fill},
	}

	text := func(line string, y, scale float64) canvas.Command {
		return canvas.Text{
			Text: line,
			At:   canvas.Pt(center.X, y),
			Style: canvas.TextStyle{
				Font:     layout.Font{Family: theme.Family, Weight: layout.Bold, Size: radius * scale},
				Color:    theme.TextColor,
				Align:    canvas.AlignCenter,
				Baseline: canvas.BaselineMiddle,
				Shadow:   theme.Shadow,
			},
		}
	}

	num := strconv.Itoa(count)

	if _, ok := s.(Ribbon); ok {
		return append(cmds, text(num+" "+label, center.Y, theme.RibbonScale))
	}

	first, second, wrapped := splitLabel(label)
	if !wrapped {
		return append(cmds,
			text(num, center.Y-radius*0.12, theme.CountScale),
			text(label, center.Y+radius*0.32, theme.LabelScale),
		)
	}
	return append(cmds,
		text(num, center.Y-radius*0.22, theme.CountScale),
		text(first, center.Y+radius*0.2, theme.WrappedLabelScale),
		text(second, center.Y+radius*0.4, theme.WrappedLabelScale),
	)
}

// splitLabel breaks a label at its first space.
func splitLabel(label string) (first, second string, wrapped bool) {
	first, second, found := strings.Cut(label, " ")
	second = strings.TrimSpace(second)
	if !found || second == "" {
		return label, "", false
	}
	return first, second, true
}
