package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func testFaces(t *testing.T) *Faces {
	t.Helper()
	cache, err := NewFaceCache()
	require.NoError(t, err)
	faces := cache.Session()
	t.Cleanup(func() { _ = faces.Close() })
	return faces
}

func face(t *testing.T, faces *Faces, size float64) font.Face {
	t.Helper()
	f, err := faces.Face(Font{Family: FamilyGo, Weight: Bold, Size: size})
	require.NoError(t, err)
	return f
}

func TestWrap_EmptyTextIsNoOp(t *testing.T) {
	f := face(t, testFaces(t), 40)

	for _, text := range []string{"", "   ", "\t\n "} {
		block := Wrap(text, f, 500, 48, 192)
		assert.Empty(t, block.Lines)
		assert.Equal(t, 192.0, block.EndY)
	}
}

func TestWrap_SingleLine(t *testing.T) {
	f := face(t, testFaces(t), 40)

	block := Wrap("short title", f, 1000, 48, 100)

	require.Len(t, block.Lines, 1)
	assert.Equal(t, "short title", block.Lines[0].Text)
	assert.Equal(t, 100.0, block.Lines[0].Top)
	assert.Equal(t, 148.0, block.EndY)
	assert.Equal(t, Measure(f, "short title"), block.Lines[0].Width)
}

func TestWrap_BreaksWithinWidth(t *testing.T) {
	f := face(t, testFaces(t), 40)
	text := "a journey through dusk and the long road home beyond the hills"
	maxWidth := 400

	block := Wrap(text, f, maxWidth, 50, 0)

	require.Greater(t, len(block.Lines), 1)
	var words []string
	for i, line := range block.Lines {
		assert.LessOrEqual(t, line.Width, maxWidth, "line %q", line.Text)
		assert.Equal(t, float64(i)*50, line.Top)
		words = append(words, strings.Fields(line.Text)...)
	}
	assert.Equal(t, strings.Fields(text), words, "wrapping must not drop or reorder words")
	assert.Equal(t, float64(len(block.Lines))*50, block.EndY)
}

func TestWrap_OversizedWordGetsOwnLine(t *testing.T) {
	f := face(t, testFaces(t), 40)

	block := Wrap("tiny SUPERCALIFRAGILISTIC tiny", f, 120, 40, 0)

	require.Len(t, block.Lines, 3)
	assert.Equal(t, "SUPERCALIFRAGILISTIC", block.Lines[1].Text)
	assert.Greater(t, block.Lines[1].Width, 120)
}

func TestFitSize_ShrinksUntilFits(t *testing.T) {
	faces := testFaces(t)
	base := Font{Family: FamilyGo, Weight: Bold}

	got, err := FitSize("THE SHADOW PATH", base, faces, 600, 60, 20, 2)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got.Size, 20.0)
	assert.LessOrEqual(t, got.Size, 60.0)
	assert.LessOrEqual(t, Measure(face(t, faces, got.Size), "THE SHADOW PATH"), 600)
	if got.Size < 60 {
		larger := face(t, faces, got.Size+2)
		assert.Greater(t, Measure(larger, "THE SHADOW PATH"), 600, "one step up should overflow")
	}
}

func TestFitSize_KeepsMaxWhenItFits(t *testing.T) {
	got, err := FitSize("HI", Font{Family: FamilyGo}, testFaces(t), 1000, 60, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Size)
}

func TestFitSize_TerminatesAtFloor(t *testing.T) {
	faces := testFaces(t)
	unbreakable := strings.Repeat("W", 200)

	tests := []struct {
		name  string
		max   float64
		floor float64
		step  float64
	}{
		{"even step", 60, 20, 2},
		{"step overshoots floor", 60, 15, 7},
		{"zero step", 30, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FitSize(unbreakable, Font{Family: FamilyGo}, faces, 100, tt.max, tt.floor, tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.floor, got.Size)
		})
	}
}

func TestFitSize_MaxBelowFloorIsKept(t *testing.T) {
	faces := testFaces(t)

	got, err := FitSize("HI", Font{Family: FamilyGo}, faces, 1000, 10, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Size, "a configured size below the floor is not raised")

	got, err = FitSize(strings.Repeat("W", 200), Font{Family: FamilyGo}, faces, 100, 10, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Size, "and not shrunk below what was asked either")
}

func TestFitSize_UnknownFamily(t *testing.T) {
	_, err := FitSize("x", Font{Family: "Nope"}, testFaces(t), 100, 60, 20, 2)
	assert.ErrorIs(t, err, ErrUnknownFont)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Bold** claim", "Bold claim"},
		{"_quiet_ and ~~loud~~", "quiet and loud"},
		{"# Heading text", "Heading text"},
		{"`code` words", "code words"},
		{"snake_case stays", "snake_case stays"},
		{"  lots \n of\tspace ", "lots of space"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestFaces_Memoizes(t *testing.T) {
	faces := testFaces(t)
	f := Font{Family: FamilyGo, Style: Italic, Size: 24}

	a, err := faces.Face(f)
	require.NoError(t, err)
	b, err := faces.Face(f)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFaceCache_RejectsBadInput(t *testing.T) {
	cache, err := NewFaceCache()
	require.NoError(t, err)

	_, err = cache.NewFace(Font{Family: FamilyGo, Size: 0})
	assert.Error(t, err)

	assert.Error(t, cache.Register("Broken", Regular, Normal, []byte("not a font")))
}
