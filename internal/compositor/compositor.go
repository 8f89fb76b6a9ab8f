// Package compositor draws title, subtitle, tagline, author and bonus badge
// over a base image to produce a finished cover.
//
// Drawing is split in two steps. Plan turns a CoverSpec into an explicit list
// of canvas commands using only font metrics; Compose executes that list on
// top of the scaled base image.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inkwellpress/inkwell/internal/badge"
	"github.com/inkwellpress/inkwell/internal/canvas"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/layout"
	"github.com/inkwellpress/inkwell/internal/media/codec"
)

// Compositor renders covers. It is safe for concurrent use.
type Compositor struct {
	fonts  *layout.FaceCache
	layout Layout
	logger *slog.Logger
}

// New creates a compositor.
func New(fonts *layout.FaceCache, l Layout, logger *slog.Logger) *Compositor {
	return &Compositor{fonts: fonts, layout: l, logger: logger}
}

// Layout returns the layout the compositor draws with.
func (c *Compositor) Layout() Layout {
	return c.layout
}

// Plan returns the draw commands for spec, without the background.
func (c *Compositor) Plan(spec CoverSpec) ([]canvas.Command, error) {
	if c.fonts == nil {
		return nil, errors.Internal("no rendering surface")
	}
	faces := c.fonts.Session()
	defer faces.Close()
	return Plan(spec, c.layout, faces)
}

// Compose draws spec over base and returns a Width x Height image.
func (c *Compositor) Compose(ctx context.Context, base image.Image, spec CoverSpec) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, errors.Wrap(errors.New("nil image"), errors.CodeDecode, "base image could not be decoded")
	}
	if c.fonts == nil {
		return nil, errors.Internal("no rendering surface")
	}

	start := time.Now()
	faces := c.fonts.Session()
	defer faces.Close()

	cmds, err := Plan(spec, c.layout, faces)
	if err != nil {
		return nil, err
	}

	cv, err := canvas.New(c.layout.Width, c.layout.Height, faces)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "no rendering surface")
	}

	if err := cv.Apply(canvas.Background{Image: base}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "draw background")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cv.Apply(cmds...); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "draw cover")
	}

	c.logger.Debug("cover composed",
		"commands", len(cmds),
		"base_width", base.Bounds().Dx(),
		"base_height", base.Bounds().Dy(),
		"elapsed", time.Since(start),
	)

	return cv.Image(), nil
}

// ComposeBytes decodes base, composes it and returns PNG bytes.
func (c *Compositor) ComposeBytes(ctx context.Context, base []byte, spec CoverSpec) ([]byte, error) {
	img, _, err := codec.DecodeRef(base)
	if err != nil {
		return nil, err
	}
	out, err := c.Compose(ctx, img, spec)
	if err != nil {
		return nil, err
	}
	data, err := codec.Encode(out, codec.PNG, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode cover")
	}
	return data, nil
}

// Plan lays spec out with l, measuring against faces. It is a pure
// function of its inputs.
func Plan(spec CoverSpec, l Layout, faces layout.FaceSource) ([]canvas.Command, error) {
	shape, err := spec.Badge()
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	p := planner{l: l, faces: faces}
	cursor := l.TitleTop()

	title := cases.Upper(language.Und).String(layout.Sanitize(spec.Title))
	cursor, err = p.paragraph(title, layout.Font{Family: l.Family, Weight: layout.Bold}, spec.TitleSize(), l.TitleFloor, l.TextColor, cursor)
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}

	subtitle := layout.Sanitize(spec.Subtitle)
	cursor, err = p.paragraph(subtitle, layout.Font{Family: l.Family}, spec.SubtitleSize(), l.SubtitleFloor, l.SubtitleColor, cursor)
	if err != nil {
		return nil, fmt.Errorf("subtitle: %w", err)
	}

	tagline := layout.Sanitize(spec.Tagline)
	taglineFont := layout.Font{Family: l.Family, Style: layout.Italic, Size: l.TaglineSize}
	if err := p.block(tagline, taglineFont, l.AccentColor, cursor); err != nil {
		return nil, fmt.Errorf("tagline: %w", err)
	}

	if err := p.author(layout.Sanitize(spec.Author), spec.AuthorSize(), spec.AuthorAlign); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}

	p.cmds = append(p.cmds, badge.Render(shape, l.BadgeCenter, l.BadgeRadius, spec.BonusCount, spec.BonusLabel, l.Badge)...)

	return p.cmds, nil
}

type planner struct {
	l     Layout
	faces layout.FaceSource
	cmds  []canvas.Command
}

// paragraph fits text from maxSize down to floor, wraps it at cursor and
// returns the cursor below it plus section spacing. Empty text leaves the
// cursor where it was.
func (p *planner) paragraph(text string, f layout.Font, maxSize, floor float64, c color.NRGBA, cursor float64) (float64, error) {
	if text == "" {
		return cursor, nil
	}
	fitted, err := layout.FitSize(text, f, p.faces, p.l.MaxTextWidth(), maxSize, floor, p.l.FitStep)
	if err != nil {
		return cursor, err
	}
	end, err := p.wrap(text, fitted, c, cursor)
	if err != nil {
		return cursor, err
	}
	return end + p.l.SectionSpacing, nil
}

// block wraps text at a fixed size.
func (p *planner) block(text string, f layout.Font, c color.NRGBA, cursor float64) error {
	if text == "" {
		return nil
	}
	_, err := p.wrap(text, f, c, cursor)
	return err
}

func (p *planner) wrap(text string, f layout.Font, c color.NRGBA, cursor float64) (float64, error) {
	face, err := p.faces.Face(f)
	if err != nil {
		return cursor, err
	}
	b := layout.Wrap(text, face, p.l.MaxTextWidth(), f.Size*p.l.LineHeightRatio, cursor)
	for _, line := range b.Lines {
		p.cmds = append(p.cmds, canvas.Text{
			Text: line.Text,
			At:   canvas.Pt(float64(p.l.Width)/2, line.Top),
			Style: canvas.TextStyle{
				Font:     f,
				Color:    c,
				Align:    canvas.AlignCenter,
				Baseline: canvas.BaselineTop,
				Shadow:   p.l.Shadow,
			},
		})
	}
	return b.EndY, nil
}

// author draws a single line on the fixed baseline, independent of
// everything above it.
func (p *planner) author(text string, size float64, align string) error {
	if text == "" {
		return nil
	}
	f, err := layout.FitSize(text, layout.Font{Family: p.l.Family, Weight: layout.Bold}, p.faces, p.l.MaxTextWidth(), size, p.l.AuthorFloor, p.l.FitStep)
	if err != nil {
		return err
	}

	at := canvas.Pt(float64(p.l.Width)-p.l.AuthorInset, p.l.AuthorBaseline)
	anchor := canvas.AlignRight
	if strings.EqualFold(align, AlignCenter) {
		at.X = float64(p.l.Width) / 2
		anchor = canvas.AlignCenter
	}

	p.cmds = append(p.cmds, canvas.Text{
		Text: text,
		At:   at,
		Style: canvas.TextStyle{
			Font:     f,
			Color:    p.l.TextColor,
			Align:    anchor,
			Baseline: canvas.BaselineAlphabetic,
			Shadow:   p.l.Shadow,
		},
	})
	return nil
}
