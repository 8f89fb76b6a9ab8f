package badge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellpress/inkwell/internal/canvas"
	"github.com/inkwellpress/inkwell/internal/layout"
)

var center = canvas.Pt(200, 1400)

func texts(cmds []canvas.Command) []string {
	var out []string
	for _, c := range cmds {
		if t, ok := c.(canvas.Text); ok {
			out = append(out, t.Text)
		}
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		kind string
		want Shape
	}{
		{"star", Star{Spikes: 5, InnerRatio: 0.5}},
		{"burst", Star{Spikes: 16, InnerRatio: 0.75}},
		{"seal", Star{Spikes: 28, InnerRatio: 0.88}},
		{"circle", Circle{}},
		{"Shield", Shield{}},
		{" ribbon ", Ribbon{}},
		{"none", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := Parse(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("hexagon")
	assert.Error(t, err)
}

func TestRender_Suppression(t *testing.T) {
	for _, kind := range Kinds {
		shape, err := Parse(string(kind))
		require.NoError(t, err)

		t.Run(string(kind)+"/zero count", func(t *testing.T) {
			assert.Empty(t, Render(shape, center, 130, 0, "BONUS", DefaultTheme()))
		})
		t.Run(string(kind)+"/negative count", func(t *testing.T) {
			assert.Empty(t, Render(shape, center, 130, -2, "BONUS", DefaultTheme()))
		})
	}

	assert.Empty(t, Render(nil, center, 130, 5, "BONUS", DefaultTheme()), "none shape draws nothing")
}

func TestRender_FillThenText(t *testing.T) {
	cmds := Render(Star{Spikes: 5, InnerRatio: 0.5}, center, 130, 3, "", DefaultTheme())

	require.Len(t, cmds, 3)
	fill, ok := cmds[0].(canvas.FillPath)
	require.True(t, ok, "first command must fill the shape")
	assert.True(t, fill.Path.Closed())
	assert.Equal(t, []string{"3", "BONUS"}, texts(cmds))

	count := cmds[1].(canvas.Text)
	label := cmds[2].(canvas.Text)
	assert.Less(t, count.At.Y, label.At.Y, "count sits above label")
	assert.Greater(t, count.Style.Font.Size, label.Style.Font.Size)
	assert.Equal(t, canvas.AlignCenter, count.Style.Align)
	assert.Equal(t, center.X, count.At.X)
	assert.Positive(t, count.Style.Shadow.Color.A, "badge text is shadowed")
}

func TestRender_WrappedLabel(t *testing.T) {
	theme := DefaultTheme()
	cmds := Render(Circle{}, center, 130, 12, "BONUS CHAPTERS", theme)

	assert.Equal(t, []string{"12", "BONUS", "CHAPTERS"}, texts(cmds))
	line := cmds[2].(canvas.Text)
	assert.InDelta(t, 130*theme.WrappedLabelScale, line.Style.Font.Size, 1e-9)
}

func TestRender_RibbonIsSingleLine(t *testing.T) {
	cmds := Render(Ribbon{}, center, 130, 3, "BONUS CHAPTERS", DefaultTheme())

	assert.Equal(t, []string{"3 BONUS CHAPTERS"}, texts(cmds))
	assert.Equal(t, center.Y, cmds[1].(canvas.Text).At.Y)
}

func TestOutlines(t *testing.T) {
	shapes := map[string]Shape{
		"star":   Star{Spikes: 5, InnerRatio: 0.5},
		"burst":  Star{Spikes: 16, InnerRatio: 0.75},
		"seal":   Star{Spikes: 28, InnerRatio: 0.88},
		"circle": Circle{},
		"shield": Shield{},
		"ribbon": Ribbon{},
	}

	for name, s := range shapes {
		t.Run(name, func(t *testing.T) {
			p := s.Outline(center, 130)
			require.True(t, p.Closed())

			minPt, maxPt := p.Bounds()
			assert.LessOrEqual(t, maxPt.Y, center.Y+130+1e-6)
			assert.GreaterOrEqual(t, minPt.Y, center.Y-130-1e-6)
			assert.InDelta(t, center.X, (minPt.X+maxPt.X)/2, 1e-6, "outline is horizontally centred")
		})
	}
}

func TestStar_Outline_Points(t *testing.T) {
	p := Star{Spikes: 5, InnerRatio: 0.5}.Outline(canvas.Pt(0, 0), 100)

	minPt, maxPt := p.Bounds()
	assert.InDelta(t, -100, minPt.Y, 1e-9, "top spike at full radius")
	assert.InDelta(t, 100*math.Cos(math.Pi/10), maxPt.X, 1e-9)
}

func TestRender_DrawsPixels(t *testing.T) {
	cache, err := layout.NewFaceCache()
	require.NoError(t, err)
	faces := cache.Session()
	defer faces.Close()

	for _, kind := range []Kind{KindStar, KindCircle, KindBurst, KindSeal, KindRibbon, KindShield} {
		t.Run(string(kind), func(t *testing.T) {
			shape, err := Parse(string(kind))
			require.NoError(t, err)

			c, err := canvas.New(400, 400, faces)
			require.NoError(t, err)
			require.NoError(t, c.Apply(Render(shape, canvas.Pt(200, 200), 130, 7, "BONUS", DefaultTheme())...))

			top := c.Image().NRGBAAt(200, 90)
			assert.Equal(t, uint8(0), c.Image().NRGBAAt(5, 5).A, "corner untouched")
			if kind != KindRibbon {
				assert.Greater(t, top.A, uint8(200), "shape covers the area above the count")
			}
		})
	}
}
