package compositor

import "github.com/inkwellpress/inkwell/internal/badge"

// Default font sizes in points, used when a CoverSpec leaves a size at zero.
const (
	DefaultTitleSizePt    = 60
	DefaultSubtitleSizePt = 36
	DefaultAuthorSizePt   = 36
)

// Author alignments.
const (
	AlignRight  = "right"
	AlignCenter = "center"
)

// CoverSpec describes the text and badge drawn over a base image.
type CoverSpec struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Author   string `json:"author,omitempty"`
	Tagline  string `json:"tagline,omitempty"`

	TitleFontSizePt    int `json:"title_font_size_pt,omitempty" validate:"omitempty,min=8,max=200"`
	SubtitleFontSizePt int `json:"subtitle_font_size_pt,omitempty" validate:"omitempty,min=8,max=200"`
	AuthorFontSizePt   int `json:"author_font_size_pt,omitempty" validate:"omitempty,min=8,max=200"`

	BonusCount        int    `json:"bonus_count" validate:"min=0,max=999"`
	BonusStickerShape string `json:"bonus_sticker_shape,omitempty" validate:"omitempty,oneof=star circle burst seal ribbon shield none"`
	BonusLabel        string `json:"bonus_label,omitempty" validate:"max=24"`

	AuthorAlign string `json:"author_align,omitempty" validate:"omitempty,oneof=right center"`
}

// TitleSize returns the configured title size or the default.
func (s CoverSpec) TitleSize() float64 {
	return sizeOr(s.TitleFontSizePt, DefaultTitleSizePt)
}

// SubtitleSize returns the configured subtitle size or the default.
func (s CoverSpec) SubtitleSize() float64 {
	return sizeOr(s.SubtitleFontSizePt, DefaultSubtitleSizePt)
}

// AuthorSize returns the configured author size or the default.
func (s CoverSpec) AuthorSize() float64 {
	return sizeOr(s.AuthorFontSizePt, DefaultAuthorSizePt)
}

// Badge resolves the sticker shape. It returns nil when no badge should be
// drawn: zero count, shape "none", or no shape at all.
func (s CoverSpec) Badge() (badge.Shape, error) {
	if s.BonusCount <= 0 {
		return nil, nil
	}
	kind := s.BonusStickerShape
	if kind == "" {
		kind = string(badge.KindStar)
	}
	return badge.Parse(kind)
}

func sizeOr(v, def int) float64 {
	if v <= 0 {
		return float64(def)
	}
	return float64(v)
}
