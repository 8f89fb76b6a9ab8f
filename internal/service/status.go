package service

import (
	"sync"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// Operation names reported in Status.
const (
	OpGenerate = "generate"
	OpRefine   = "refine"
	OpEnhance  = "enhance"
	OpPrompt   = "prompt"
	OpTagline  = "tagline"
)

// Status is the busy flag of a project plus the outcome of its last
// operation.
type Status struct {
	Busy      bool   `json:"busy"`
	Operation string `json:"operation,omitempty"`
	// Message is the user-facing failure message of the last operation,
	// empty after a success.
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// statusTracker allows one long-running cover operation per project.
type statusTracker struct {
	mu        sync.Mutex
	byProject map[string]Status
}

func newStatusTracker() *statusTracker {
	return &statusTracker{byProject: make(map[string]Status)}
}

// begin marks the project busy. It reports false if it already was.
func (t *statusTracker) begin(projectID, op string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byProject[projectID].Busy {
		return false
	}
	t.byProject[projectID] = Status{Busy: true, Operation: op}
	return true
}

// end clears the busy flag and records the outcome.
func (t *statusTracker) end(projectID string, err error) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{Operation: t.byProject[projectID].Operation}
	if err != nil {
		st.Message = errors.UserMessage(err)
		st.Code = string(errors.CodeOf(err))
	}
	t.byProject[projectID] = st
	return st
}

func (t *statusTracker) get(projectID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byProject[projectID]
}

func (t *statusTracker) forget(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byProject, projectID)
}
