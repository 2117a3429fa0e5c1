package events

import "time"

// EventType identifies the kind of event emitted during a verification run.
type EventType string

const (
	EventRunStart        EventType = "run.start"
	EventRunEnd          EventType = "run.end"
	EventRunState        EventType = "run.state"
	EventBrowserLaunched EventType = "browser.launched"
	EventPageReady       EventType = "page.ready"
	EventStepStart       EventType = "step.start"
	EventStepEnd         EventType = "step.end"
	EventStepError       EventType = "step.error"
	EventVerifyResult    EventType = "verify.result"
	EventArtifactSaved   EventType = "artifact.saved"
	EventConsoleMessage  EventType = "console.message"
	EventSuiteLoaded     EventType = "suite.loaded"
	EventPlanGenerated   EventType = "plan.generated"
	EventReportWritten   EventType = "report.written"
)

// Event represents a single runtime event.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id,omitempty"`
	Data      any           `json:"data"`
	StepIndex int           `json:"step_index,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// NewEvent creates a new Event with the current timestamp.
func NewEvent(typ EventType, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}
