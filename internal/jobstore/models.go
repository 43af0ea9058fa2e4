package jobstore

import (
	"strings"
	"time"
)

// Kind identifies which job family a record belongs to.
type Kind string

const (
	KindConversion Kind = "conversion"
	KindPodcast    Kind = "podcast"
)

// Kinds returns the ordered list of known job kinds.
func Kinds() []Kind {
	return []Kind{KindConversion, KindPodcast}
}

// ParseKind maps a user-supplied name to a known kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindConversion:
		return KindConversion, true
	case KindPodcast:
		return KindPodcast, true
	}
	return "", false
}

// Status represents the server-reported lifecycle of a job. Unknown values
// are carried verbatim so newer servers do not break older watchers.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether the status is one this client understands.
func (s Status) Known() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Record is the latest known state of a single job. Records are plain values;
// the store hands out copies, never references into its maps.
type Record struct {
	ID          string
	Kind        Kind
	Status      Status
	Title       string
	Error       string
	ArtifactURL string

	// Seq is the arrival order assigned by the store, not a server value.
	Seq        uint64
	ReceivedAt time.Time
}

// Terminal reports whether the record reached a final status.
func (r Record) Terminal() bool {
	return r.Status.Terminal()
}
