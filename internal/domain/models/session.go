package models

import "time"

// Phase is the session controller state.
type Phase string

const (
	PhaseIdle     Phase = "Idle"
	PhaseFetching Phase = "Fetching"
	PhaseSettling Phase = "Settling"
	PhaseReady    Phase = "Ready"
)

// ErrorKind classifies user-visible session errors.
type ErrorKind string

const (
	ErrorKindNetwork   ErrorKind = "network_failure"
	ErrorKindMalformed ErrorKind = "malformed_payload"
)

// SessionError is the short message surfaced to the analyst after a failed sequence.
type SessionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Quote is shown during the settling pause.
type Quote struct {
	Name  string `json:"name"`
	Quote string `json:"quote"`
	URL   string `json:"url"`
}

// Snapshot is an immutable copy of the session state as published to consumers.
// View and Timeline always belong to ActiveDate.
type Snapshot struct {
	Seq           uint64        `json:"seq"`
	Phase         Phase         `json:"phase"`
	RequestedDate Date          `json:"requested_date"`
	ActiveDate    Date          `json:"active_date"`
	View          *GuidanceView `json:"view,omitempty"`
	Timeline      *TimelineView `json:"timeline,omitempty"`
	Quote         *Quote        `json:"quote,omitempty"`
	Message       string        `json:"message,omitempty"`
	Error         *SessionError `json:"error,omitempty"`
	Discrepancy   string        `json:"discrepancy,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SnapshotEvent is the flattened record of a settled snapshot written to
// Kafka and the Redis history.
type SnapshotEvent struct {
	Seq              uint64      `json:"seq"`
	RequestedDate    Date        `json:"requested_date"`
	ActiveDate       Date        `json:"active_date"`
	Regime           RegimeLabel `json:"regime,omitempty"`
	Severity         Severity    `json:"severity,omitempty"`
	EarlyWarningProb float64     `json:"early_warning_prob"`
	AnnualizedTrend  float64     `json:"annualized_trend"`
	Allocation       *Allocation `json:"allocation,omitempty"`
	ErrorKind        ErrorKind   `json:"error_kind,omitempty"`
	Discrepancy      string      `json:"discrepancy,omitempty"`
	Timestamp        time.Time   `json:"ts"`
}

// NewSnapshotEvent flattens s.
func NewSnapshotEvent(s Snapshot) SnapshotEvent {
	ev := SnapshotEvent{
		Seq:           s.Seq,
		RequestedDate: s.RequestedDate,
		ActiveDate:    s.ActiveDate,
		Discrepancy:   s.Discrepancy,
		Timestamp:     s.UpdatedAt.UTC(),
	}
	if s.View != nil {
		alloc := s.View.Allocation
		ev.Regime = s.View.Regime
		ev.Severity = s.View.Severity
		ev.EarlyWarningProb = s.View.EarlyWarningProb
		ev.AnnualizedTrend = s.View.AnnualizedTrend
		ev.Allocation = &alloc
	}
	if s.Error != nil {
		ev.ErrorKind = s.Error.Kind
	}
	return ev
}
