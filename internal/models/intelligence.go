package models

import "time"

// SignalType is the structural category of a raw intelligence item.
type SignalType string

const (
	SignalInjury          SignalType = "INJURY"
	SignalRotation        SignalType = "ROTATION"
	SignalSuspension      SignalType = "SUSPENSION"
	SignalPressConference SignalType = "PRESS_CONFERENCE"
	SignalLineupLeak      SignalType = "LINEUP_LEAK"
)

// Severity grades the impact of a classified signal.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ImpliedStatus is the availability a classified signal suggests, which the
// adjuster weighs against the upstream authority.
type ImpliedStatus string

const (
	ImpliedInjured   ImpliedStatus = "injured"
	ImpliedDoubtful  ImpliedStatus = "doubtful"
	ImpliedSuspended ImpliedStatus = "suspended"
	ImpliedNone      ImpliedStatus = ""
)

// Sentiment is the tone of a signal with no availability implication.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// RawSignal is what an IntelligenceSource emits before classification.
type RawSignal struct {
	SourceID          string     `json:"source_id"`
	SourceReliability float64    `json:"source_reliability"` // 0..1
	Type              SignalType `json:"type"`
	PlayerName        string     `json:"player_name"`
	Detail            string     `json:"detail"`
	ObservedAt        time.Time  `json:"observed_at"`
}

// IntelligenceSignal is a classified, persisted signal.
type IntelligenceSignal struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	SignalID          string        `gorm:"uniqueIndex" json:"signal_id"`
	Timestamp         time.Time     `gorm:"not null;index" json:"timestamp"`
	Source            string        `gorm:"not null" json:"source"`
	SourceReliability float64       `json:"source_reliability"`
	RawType           SignalType    `gorm:"not null" json:"raw_type"`
	PlayerID          *uint         `gorm:"index" json:"player_id,omitempty"`
	PlayerName        string        `json:"player_name"`
	MatchScore        int           `json:"match_score"` // 0..100
	Confidence        float64       `json:"confidence"`  // 0..1
	Severity          Severity      `gorm:"not null" json:"severity"`
	ImpliedStatus     ImpliedStatus `json:"implied_status"`
	Sentiment         Sentiment     `json:"sentiment"`
	Actionable        bool          `gorm:"index" json:"actionable"`
	Detail            string        `json:"detail"`
	ExpiresAt         time.Time     `gorm:"index" json:"expires_at"`
	CreatedAt         time.Time     `json:"created_at"`
}

func (IntelligenceSignal) TableName() string {
	return "intelligence_signals"
}

// Urgent reports whether the signal should force squad action.
func (s *IntelligenceSignal) Urgent() bool {
	return s.Actionable && (s.Severity == SeverityCritical || s.Severity == SeverityHigh)
}
