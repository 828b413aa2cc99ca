package provision

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EventType classifies lifecycle events emitted by workflows.
type EventType string

const (
	// Phase-level events.
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	// Node-level events within a phase.
	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"

	// Warning events that do not stop a workflow.
	EventWarning EventType = "warning"

	// Progress events.
	EventProgress EventType = "progress"
)

// Event is a structured lifecycle event.
type Event struct {
	Type      EventType
	Phase     string
	Node      string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// Logger is the minimal printf-style logging surface.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer receives lifecycle events from workflows.
type Observer interface {
	Logger

	// Event is called for structured lifecycle events.
	Event(e Event)

	// Progress reports step progress within a phase.
	Progress(phase string, current, total int)

	// WithFields returns an observer that annotates all events with
	// the given fields.
	WithFields(fields map[string]string) Observer
}

// ConsoleObserver writes events as structured log lines.
type ConsoleObserver struct {
	entry *logrus.Entry
}

// NewConsoleObserver returns an observer logging to stderr.
func NewConsoleObserver() *ConsoleObserver {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	return &ConsoleObserver{entry: logrus.NewEntry(log)}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	o.entry.Infof(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(e Event) {
	entry := o.entry
	if e.Phase != "" {
		entry = entry.WithField("phase", e.Phase)
	}
	if e.Node != "" {
		entry = entry.WithField("node", e.Node)
	}
	for k, v := range e.Fields {
		entry = entry.WithField(k, v)
	}
	switch e.Type {
	case EventPhaseFailed, EventNodeFailed:
		entry.Error(e.Message)
	case EventWarning:
		entry.Warn(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total <= 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	o.entry.WithField("phase", phase).Infof("%d/%d (%.0f%%)", current, total, pct)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	entry := o.entry
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	return &ConsoleObserver{entry: entry}
}

// LogPhaseStart emits a phase start event.
func LogPhaseStart(o Observer, phase, message string) {
	o.Event(Event{
		Type:      EventPhaseStarted,
		Phase:     phase,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// LogPhaseComplete emits a phase completion event.
func LogPhaseComplete(o Observer, phase string) {
	o.Event(Event{
		Type:      EventPhaseCompleted,
		Phase:     phase,
		Message:   "completed",
		Timestamp: time.Now(),
	})
}

// LogPhaseFailed emits a phase failure event.
func LogPhaseFailed(o Observer, phase string, err error) {
	o.Event(Event{
		Type:      EventPhaseFailed,
		Phase:     phase,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// LogNodeStart emits a node step start event.
func LogNodeStart(o Observer, phase, node, message string) {
	o.Event(Event{
		Type:      EventNodeStarted,
		Phase:     phase,
		Node:      node,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// LogNodeComplete emits a node step completion event.
func LogNodeComplete(o Observer, phase, node, message string) {
	o.Event(Event{
		Type:      EventNodeCompleted,
		Phase:     phase,
		Node:      node,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// LogNodeFailed emits a node step failure event.
func LogNodeFailed(o Observer, phase, node string, err error) {
	o.Event(Event{
		Type:      EventNodeFailed,
		Phase:     phase,
		Node:      node,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// LogWarning emits a non-fatal warning event.
func LogWarning(o Observer, phase, node, message string) {
	o.Event(Event{
		Type:      EventWarning,
		Phase:     phase,
		Node:      node,
		Message:   message,
		Timestamp: time.Now(),
	})
}
