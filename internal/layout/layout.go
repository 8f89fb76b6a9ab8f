// Package layout measures, wraps and fits text against a pixel width.
// Everything here is pure geometry: no drawing, no I/O.
package layout

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/image/font"
)

// ErrUnknownFont is returned when no font file is registered for a description.
var ErrUnknownFont = errors.New("unknown font")

var (
	headingRe  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	emphasisRe = regexp.MustCompile("\\*\\*|__|~~|`|\\*|\\b_|_\\b")
)

// Line is one committed line of wrapped text.
type Line struct {
	Text  string
	Width int     // measured width in pixels
	Top   float64 // top of the line box
}

// Block is the result of wrapping a paragraph.
type Block struct {
	Lines []Line
	// EndY is the cursor below the last line: startY + len(Lines)*lineHeight.
	EndY float64
}

// Measure returns the advance width of s in whole pixels.
func Measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// Sanitize strips emphasis markup and heading markers and collapses runs
// of whitespace to single spaces.
func Sanitize(text string) string {
	text = headingRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Wrap greedily packs words onto lines no wider than maxWidth, measuring
// with face. A single word wider than maxWidth gets a line of its own.
// Empty or whitespace-only text yields no lines and EndY == startY.
func Wrap(text string, face font.Face, maxWidth int, lineHeight, startY float64) Block {
	words := strings.Fields(text)
	block := Block{EndY: startY}
	if len(words) == 0 {
		return block
	}

	commit := func(s string) {
		block.Lines = append(block.Lines, Line{
			Text:  s,
			Width: Measure(face, s),
			Top:   block.EndY,
		})
		block.EndY += lineHeight
	}

	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if Measure(face, trial) <= maxWidth {
			current = trial
			continue
		}
		commit(current)
		current = word
	}
	commit(current)

	return block
}

// FitSize shrinks f from maxSize by step while the whole text, measured
// on a single line, is wider than maxWidth. It stops at floor even when
// the text still overflows. A maxSize below floor is used as-is. A
// non-positive step is treated as 1.
func FitSize(text string, f Font, faces FaceSource, maxWidth int, maxSize, floor, step float64) (Font, error) {
	if step <= 0 {
		step = 1
	}
	floor = min(floor, maxSize)

	size := maxSize
	for {
		face, err := faces.Face(f.WithSize(size))
		if err != nil {
			return f, err
		}
		if Measure(face, text) <= maxWidth || size <= floor {
			return f.WithSize(size), nil
		}
		size -= step
		if size < floor {
			size = floor
		}
	}
}
