// Package domain contains the stored records of the cover studio.
package domain

import (
	"slices"
	"strings"
)

// Project is a book whose cover is being designed.
type Project struct {
	Timestamps
	ID string `json:"id"`

	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Author     string   `json:"author"`
	Categories []string `json:"categories,omitempty"`
	Topic      string   `json:"topic,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Tagline    string   `json:"tagline,omitempty"`

	// CoverPrompt is the prompt most recently synthesized or used for generation.
	CoverPrompt string `json:"cover_prompt,omitempty"`

	Typography Typography `json:"typography"`
	Badge      Badge      `json:"badge"`
}

// Typography holds per-project font sizes in points. Zero means default.
type Typography struct {
	TitleFontSizePt    int    `json:"title_font_size_pt,omitempty"`
	SubtitleFontSizePt int    `json:"subtitle_font_size_pt,omitempty"`
	AuthorFontSizePt   int    `json:"author_font_size_pt,omitempty"`
	AuthorAlign        string `json:"author_align,omitempty"`
}

// Badge configures the bonus sticker.
type Badge struct {
	Count int    `json:"count,omitempty"`
	Shape string `json:"shape,omitempty"`
	Label string `json:"label,omitempty"`
}

// MissingPrerequisites lists the metadata fields that must be filled in
// before covers can be generated.
func (p *Project) MissingPrerequisites() []string {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.Subtitle) == "" {
		missing = append(missing, "subtitle")
	}
	if strings.TrimSpace(p.Author) == "" {
		missing = append(missing, "author")
	}
	if !slices.ContainsFunc(p.Categories, func(c string) bool { return strings.TrimSpace(c) != "" }) {
		missing = append(missing, "categories")
	}
	return missing
}

// ReadyForCovers reports whether cover generation may start.
func (p *Project) ReadyForCovers() bool {
	return len(p.MissingPrerequisites()) == 0
}
