package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/layout"
)

const (
	promptSystem = "You write prompts for an image model that paints book cover artwork. " +
		"Describe only the imagery, composition, palette and mood. " +
		"Never ask for text, letters, titles or logos in the image. Answer with the prompt only."

	taglineSystem = "You write one-line marketing taglines for book covers. " +
		"Answer with a single line of at most twelve words and no quotation marks."

	promptMaxTokens  = 400
	taglineMaxTokens = 60
	maxTaglineLen    = 160
)

// SynthesizeInput carries optional guidance for prompt and tagline
// synthesis.
type SynthesizeInput struct {
	Guidance string `json:"guidance,omitempty" validate:"max=1000"`
}

// SynthesizePrompt asks the text backend for a cover prompt built from the
// project's metadata and stores it as the project's cover prompt.
func (s *CoverService) SynthesizePrompt(ctx context.Context, projectID string, in SynthesizeInput) (p *domain.Project, err error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	project, err := s.readyProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.begin(projectID, OpPrompt); err != nil {
		return nil, err
	}
	defer s.end(projectID, &err)

	text, err := s.generateText(ctx, genai.TextRequest{
		System:    promptSystem,
		Prompt:    projectContext(project, in.Guidance),
		MaxTokens: promptMaxTokens,
	}, "cover prompt synthesis failed")
	if err != nil {
		return nil, err
	}

	project.CoverPrompt = cleanText(text)
	if project.CoverPrompt == "" {
		return nil, errors.NoResult("no cover prompt was produced")
	}
	if err := s.updateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// SynthesizeTagline asks the text backend for a one-line tagline and stores
// it on the project.
func (s *CoverService) SynthesizeTagline(ctx context.Context, projectID string, in SynthesizeInput) (p *domain.Project, err error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	project, err := s.readyProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.begin(projectID, OpTagline); err != nil {
		return nil, err
	}
	defer s.end(projectID, &err)

	text, err := s.generateText(ctx, genai.TextRequest{
		System:    taglineSystem,
		Prompt:    projectContext(project, in.Guidance),
		MaxTokens: taglineMaxTokens,
	}, "tagline synthesis failed")
	if err != nil {
		return nil, err
	}

	tagline := cleanText(firstLine(text))
	if tagline == "" {
		return nil, errors.NoResult("no tagline was produced")
	}
	if len([]rune(tagline)) > maxTaglineLen {
		tagline = string([]rune(tagline)[:maxTaglineLen])
	}

	project.Tagline = tagline
	if err := s.updateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *CoverService) generateText(ctx context.Context, req genai.TextRequest, msg string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.text.GenerateText(ctx, req)
	if err != nil {
		return "", genai.DomainError(err, msg)
	}
	return text, nil
}

// projectContext renders the structured book context sent to the text
// backend.
func projectContext(p *domain.Project, guidance string) string {
	var b strings.Builder
	line := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Title", p.Title)
	line("Subtitle", p.Subtitle)
	line("Author", p.Author)
	line("Categories", strings.Join(p.Categories, ", "))
	line("Keywords", strings.Join(p.Keywords, ", "))
	line("Topic", p.Topic)
	line("Tagline", p.Tagline)
	line("Guidance", guidance)
	return strings.TrimSpace(b.String())
}

func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// cleanText strips markdown and wrapping quotes from model output.
func cleanText(s string) string {
	s = strings.TrimSpace(layout.Sanitize(s))
	s = strings.Trim(s, "\"'“”‘’`")
	return strings.TrimSpace(s)
}
