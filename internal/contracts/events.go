package contracts

import "time"

// ShortageEventType classifies a supply-shortage event.
type ShortageEventType string

const (
	ShortageStart    ShortageEventType = "start"
	ShortageResolved ShortageEventType = "resolved"
)

// ShortageEvent is a point-in-time supply fact: true as of EventDate,
// unknown before. JoinKey is the free-text generic/ingredient name as
// published by the feed; normalization happens at join time.
type ShortageEvent struct {
	EventDate time.Time         `json:"event_date"`
	JoinKey   string            `json:"join_key"`
	EventType ShortageEventType `json:"event_type"`
}

// RiskEvent is a manufacturer-risk fact produced by the sentinel
// collaborator (severity 0-10). Multiple events may share a
// (manufacturer, date) pair; the fusion join reduces them to the max.
type RiskEvent struct {
	EventDate        time.Time `json:"event_date"`
	ManufacturerName string    `json:"manufacturer_name"`
	SeverityScore    float64   `json:"severity_score"`
}
