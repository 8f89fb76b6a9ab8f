// Package sse streams cover studio events to browsers with Server-Sent Events.
package sse

import (
	"time"

	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// Cover set changes mirror coverset.EventType values.
	EventCoverGenerationStarted EventType = EventType(coverset.EventGenerationStarted)
	EventCoverCandidatesReady   EventType = EventType(coverset.EventCandidatesReady)
	EventCoverSelected          EventType = EventType(coverset.EventSelected)
	EventCoverArchived          EventType = EventType(coverset.EventArchived)
	EventCoverUnarchived        EventType = EventType(coverset.EventUnarchived)
	EventCoverReplaced          EventType = EventType(coverset.EventReplaced)
	EventCoverPromptRecorded    EventType = EventType(coverset.EventPromptRecorded)

	// EventProjectStatus reports a project's busy flag and the last outcome.
	EventProjectStatus EventType = "project.status"

	EventEnhanceProgress  EventType = "enhance.progress"
	EventEnhanceCompleted EventType = "enhance.completed"
	EventEnhanceFailed    EventType = "enhance.failed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ProjectID limits delivery to clients watching that project. Empty
	// means every client.
	ProjectID string `json:"project_id,omitempty"`
}

// StatusEventData is the payload of project.status events.
type StatusEventData struct {
	Busy      bool   `json:"busy"`
	Operation string `json:"operation,omitempty"`
	Message   string `json:"message,omitempty"`
}

// JobEventData is the payload of enhancement job events.
type JobEventData struct {
	JobID     string           `json:"job_id"`
	Status    domain.JobStatus `json:"status"`
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`
	Progress  int              `json:"progress"`
	Error     string           `json:"error,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewCoverSetEvent wraps a committed cover set change.
func NewCoverSetEvent(e coverset.Event) Event {
	return Event{
		Type:      EventType(e.Type),
		ProjectID: e.Set.ProjectID,
		Data:      e.Set,
		Timestamp: time.Now(),
	}
}

// NewStatusEvent reports whether a project is busy.
func NewStatusEvent(projectID string, data StatusEventData) Event {
	return Event{
		Type:      EventProjectStatus,
		ProjectID: projectID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewJobEvent reports enhancement job progress. The event type follows the
// job status.
func NewJobEvent(job *domain.EnhanceJob) Event {
	eventType := EventEnhanceProgress
	//nolint:exhaustive // Pending and running both report progress.
	switch job.Status {
	case domain.JobStatusCompleted:
		eventType = EventEnhanceCompleted
	case domain.JobStatusFailed, domain.JobStatusCancelled:
		eventType = EventEnhanceFailed
	}

	return Event{
		Type:      eventType,
		ProjectID: job.ProjectID,
		Data: JobEventData{
			JobID:     job.ID,
			Status:    job.Status,
			Total:     job.Total,
			Completed: job.Completed,
			Failed:    job.Failed,
			Progress:  job.Progress(),
			Error:     job.Error,
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
