// Package coverset tracks the cover candidates, selection, archive and
// prompt history of a project. All mutations for a project run on a single
// goroutine.
package coverset

import (
	"slices"
	"strings"
	"time"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// Sentinel errors, wrapped with a conflict or validation code when returned.
var (
	ErrStaleGeneration = errors.New("coverset: generation superseded")
	ErrStaleSelection  = errors.New("coverset: selection changed")
	ErrUnknownCover    = errors.New("coverset: cover not in project")
	ErrClosed          = errors.New("coverset: manager closed")
)

// Candidate is one encoded cover. ID is the hex SHA-256 of its bytes, so two
// candidates with the same ID are the same image.
type Candidate struct {
	ID        string    `json:"id"`
	MIME      string    `json:"mime"`
	BlurHash  string    `json:"blur_hash,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CoverSet is the cover state of one project.
type CoverSet struct {
	ProjectID string `json:"project_id"`
	// Candidates are in generation order. Refinement replaces in place.
	Candidates []Candidate `json:"candidates"`
	// Selected is a candidate or archived cover ID, or empty.
	Selected string `json:"selected,omitempty"`
	// Archived covers, unique by ID, in archive order.
	Archived []Candidate `json:"archived"`
	// PromptHistory is append-only with no duplicates.
	PromptHistory []string `json:"prompt_history"`
	// Generation counts BeginGeneration calls.
	Generation uint64 `json:"generation"`
}

// Token identifies one generation run.
type Token struct {
	generation uint64
}

// Generation returns the generation number the token was issued for.
func (t Token) Generation() uint64 {
	return t.generation
}

// Clone returns a deep copy.
func (s CoverSet) Clone() CoverSet {
	s.Candidates = slices.Clone(s.Candidates)
	s.Archived = slices.Clone(s.Archived)
	s.PromptHistory = slices.Clone(s.PromptHistory)
	return s
}

// Find returns the candidate or archived cover with id.
func (s CoverSet) Find(id string) (Candidate, bool) {
	if i := s.candidateIndex(id); i >= 0 {
		return s.Candidates[i], true
	}
	if i := s.archiveIndex(id); i >= 0 {
		return s.Archived[i], true
	}
	return Candidate{}, false
}

// SelectedCandidate returns the selected cover, if any.
func (s CoverSet) SelectedCandidate() (Candidate, bool) {
	if s.Selected == "" {
		return Candidate{}, false
	}
	return s.Find(s.Selected)
}

// IsArchived reports whether id is in the archive.
func (s CoverSet) IsArchived(id string) bool {
	return s.archiveIndex(id) >= 0
}

func (s CoverSet) candidateIndex(id string) int {
	return slices.IndexFunc(s.Candidates, func(c Candidate) bool { return c.ID == id })
}

func (s CoverSet) archiveIndex(id string) int {
	return slices.IndexFunc(s.Archived, func(c Candidate) bool { return c.ID == id })
}

// The methods below are the pure state transitions the Manager runs. Each
// returns the event to emit, or "" when nothing changed.

func (s *CoverSet) beginGeneration(prompt string) EventType {
	s.Generation++
	s.Candidates = nil
	s.Selected = ""
	s.recordPrompt(prompt)
	return EventGenerationStarted
}

func (s *CoverSet) completeGeneration(token Token, cands []Candidate) (EventType, error) {
	if token.generation != s.Generation {
		return "", errors.Wrap(ErrStaleGeneration, errors.CodeConflict, "a newer cover generation has started")
	}
	s.Candidates = make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.ID == "" || s.candidateIndex(c.ID) >= 0 {
			continue
		}
		s.Candidates = append(s.Candidates, c)
	}
	s.Selected = ""
	if len(s.Candidates) > 0 {
		s.Selected = s.Candidates[0].ID
	}
	return EventCandidatesReady, nil
}

func (s *CoverSet) selectCover(id string) (EventType, error) {
	if _, ok := s.Find(id); !ok {
		return "", errors.Wrap(ErrUnknownCover, errors.CodeValidation, "cover is not part of this project")
	}
	if s.Selected == id {
		return "", nil
	}
	s.Selected = id
	return EventSelected, nil
}

func (s *CoverSet) save(id string) (EventType, error) {
	if s.IsArchived(id) {
		return "", nil
	}
	i := s.candidateIndex(id)
	if i < 0 {
		return "", errors.Wrap(ErrUnknownCover, errors.CodeValidation, "cover is not part of this project")
	}
	s.Archived = append(s.Archived, s.Candidates[i])
	return EventArchived, nil
}

func (s *CoverSet) unarchive(id string) EventType {
	i := s.archiveIndex(id)
	if i < 0 {
		return ""
	}
	s.Archived = slices.Delete(s.Archived, i, i+1)
	if s.Selected == id && s.candidateIndex(id) < 0 {
		s.Selected = ""
	}
	return EventUnarchived
}

// replaceSelected swaps the selected cover for c. When the selection is
// only in the archive, c is appended to the candidates instead so the
// archive keeps the original.
func (s *CoverSet) replaceSelected(expectedID string, c Candidate) (EventType, error) {
	if s.Selected == "" || s.Selected != expectedID {
		return "", errors.Wrap(ErrStaleSelection, errors.CodeConflict, "the selected cover changed while refining")
	}
	if i := s.candidateIndex(expectedID); i >= 0 {
		s.Candidates[i] = c
	} else {
		s.Candidates = append(s.Candidates, c)
	}
	s.Selected = c.ID
	return EventReplaced, nil
}

func (s *CoverSet) replaceAt(index int, expectedID string, c Candidate) (EventType, error) {
	if index < 0 || index >= len(s.Candidates) || s.Candidates[index].ID != expectedID {
		return "", errors.Wrap(ErrStaleSelection, errors.CodeConflict, "the cover changed while refining")
	}
	s.Candidates[index] = c
	if s.Selected == expectedID {
		s.Selected = c.ID
	}
	return EventReplaced, nil
}

func (s *CoverSet) recordPrompt(prompt string) EventType {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || slices.Contains(s.PromptHistory, prompt) {
		return ""
	}
	s.PromptHistory = append(s.PromptHistory, prompt)
	return EventPromptRecorded
}
