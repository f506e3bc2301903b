package intel

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gafferbot/gaffer/internal/models"
)

// fuzzyAcceptScore is the floor below which a fuzzy name match is treated as
// unresolved. The actionability gates apply their own, stricter floors.
const fuzzyAcceptScore = 60

// Token tiers for confidence scoring.
var (
	highConfidenceTokens   = []string{"confirmed", "official", "ruled out", "will miss", "undergone"}
	mediumConfidenceTokens = []string{"expected", "likely", "set to", "in line"}
	lowConfidenceTokens    = []string{"might", "could", "rumor", "rumour", "reportedly"}
)

// Token tiers for severity.
var (
	criticalSeverityTokens = []string{"season", "months", "surgery", "acl", "fracture"}
	highSeverityTokens     = []string{"weeks", "serious", "suspended", "red card"}
	mediumSeverityTokens   = []string{"doubtful", "rotation", "rested", "knock"}
)

// Sentiment tokens for signals with no availability implication.
var (
	positiveTokens = []string{"fit", "back in training", "returned", "available again", "in contention"}
	negativeTokens = []string{"dropped", "benched", "out of favour", "struggling", "poor"}
)

// signalNamespace roots deterministic signal ids.
var signalNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Gates holds the tunable classification floors and signal lifetimes.
// Transcript-derived signals expire faster than structured ones; the
// severity tiers derive stricter floors from the base gates.
type Gates struct {
	SignalTTLDays     int
	TranscriptTTLDays int
	MinConfidence     float64
	MinMatchScore     int
}

// DefaultGates are the gates used when a field is left zero.
func DefaultGates() Gates {
	return Gates{
		SignalTTLDays:     30,
		TranscriptTTLDays: 7,
		MinConfidence:     0.6,
		MinMatchScore:     70,
	}
}

// Classifier turns raw intelligence into scored, persisted-shape signals.
// It is pure: the same raw signal and index always classify identically.
type Classifier struct {
	index *NameIndex
	gates Gates
}

func NewClassifier(index *NameIndex, gates Gates) *Classifier {
	def := DefaultGates()
	if gates.SignalTTLDays <= 0 {
		gates.SignalTTLDays = def.SignalTTLDays
	}
	if gates.TranscriptTTLDays <= 0 {
		gates.TranscriptTTLDays = def.TranscriptTTLDays
	}
	if gates.MinConfidence <= 0 {
		gates.MinConfidence = def.MinConfidence
	}
	if gates.MinMatchScore <= 0 {
		gates.MinMatchScore = def.MinMatchScore
	}
	return &Classifier{index: index, gates: gates}
}

// Classify scores one raw signal. It never returns nil: unresolvable or
// vague signals come back non-actionable rather than dropped, so the
// decision log keeps them.
func (c *Classifier) Classify(raw models.RawSignal) *models.IntelligenceSignal {
	detail := strings.ToLower(raw.Detail)

	confidence := confidenceScore(raw.SourceReliability, detail)
	playerID, matchScore := c.index.Resolve(raw.PlayerName, fuzzyAcceptScore)
	severity := severityFor(raw.Type, detail)

	sig := &models.IntelligenceSignal{
		SignalID:          deterministicID(raw),
		Timestamp:         raw.ObservedAt,
		Source:            raw.SourceID,
		SourceReliability: raw.SourceReliability,
		RawType:           raw.Type,
		PlayerID:          playerID,
		PlayerName:        raw.PlayerName,
		MatchScore:        matchScore,
		Confidence:        confidence,
		Severity:          severity,
		ImpliedStatus:     impliedStatusFor(raw.Type),
		Sentiment:         sentimentFor(raw.Type, detail),
		Detail:            raw.Detail,
		ExpiresAt:         raw.ObservedAt.Add(c.ttlFor(raw.Type)),
	}
	sig.Actionable = c.actionable(sig)
	return sig
}

// ttlFor picks the signal lifetime: transcript-derived signals go stale in
// days, structured ones hold for weeks.
func (c *Classifier) ttlFor(t models.SignalType) time.Duration {
	days := c.gates.SignalTTLDays
	if t == models.SignalPressConference {
		days = c.gates.TranscriptTTLDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ClassifyAll classifies a batch and returns it deterministically ordered.
func (c *Classifier) ClassifyAll(raws []models.RawSignal) []*models.IntelligenceSignal {
	out := make([]*models.IntelligenceSignal, 0, len(raws))
	for _, raw := range raws {
		out = append(out, c.Classify(raw))
	}
	SortSignals(out)
	return out
}

func confidenceScore(reliability float64, detail string) float64 {
	conf := reliability
	switch {
	case containsAny(detail, highConfidenceTokens):
		conf += 0.2
	case containsAny(detail, mediumConfidenceTokens):
		conf += 0.1
	}
	if containsAny(detail, lowConfidenceTokens) {
		conf -= 0.2
	}
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func severityFor(t models.SignalType, detail string) models.Severity {
	switch {
	case containsAny(detail, criticalSeverityTokens):
		return models.SeverityCritical
	case containsAny(detail, highSeverityTokens):
		return models.SeverityHigh
	case containsAny(detail, mediumSeverityTokens):
		return models.SeverityMedium
	}
	// Structural defaults when the text itself is uninformative.
	switch t {
	case models.SignalSuspension, models.SignalInjury:
		return models.SeverityHigh
	case models.SignalRotation:
		return models.SeverityMedium
	}
	return models.SeverityLow
}

func impliedStatusFor(t models.SignalType) models.ImpliedStatus {
	switch t {
	case models.SignalInjury:
		return models.ImpliedInjured
	case models.SignalSuspension:
		return models.ImpliedSuspended
	case models.SignalRotation:
		return models.ImpliedDoubtful
	}
	return models.ImpliedNone
}

func sentimentFor(t models.SignalType, detail string) models.Sentiment {
	// Availability-bearing types carry their meaning in ImpliedStatus.
	if impliedStatusFor(t) != models.ImpliedNone {
		return models.SentimentNeutral
	}
	switch {
	case containsAny(detail, positiveTokens):
		return models.SentimentPositive
	case containsAny(detail, negativeTokens):
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

// actionable applies the gates: the configured confidence and match floors,
// then a stricter derived floor per severity tier. Lineup leaks skip the
// match floor since they often name players the index spells differently.
func (c *Classifier) actionable(s *models.IntelligenceSignal) bool {
	passes := func(confFloor float64, matchFloor int) bool {
		matchOK := s.MatchScore >= matchFloor || s.RawType == models.SignalLineupLeak
		return s.Confidence >= confFloor && matchOK
	}
	if !passes(c.gates.MinConfidence, c.gates.MinMatchScore) {
		return false
	}
	switch s.Severity {
	case models.SeverityCritical:
		return true
	case models.SeverityHigh:
		return passes(c.gates.MinConfidence+0.1, c.gates.MinMatchScore+5)
	case models.SeverityMedium:
		return passes(c.gates.MinConfidence+0.2, c.gates.MinMatchScore+10)
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// deterministicID derives a stable signal id from the identifying fields,
// so re-polling a source never duplicates rows.
func deterministicID(raw models.RawSignal) string {
	seed := raw.SourceID + "|" + string(raw.Type) + "|" + raw.PlayerName + "|" +
		raw.ObservedAt.UTC().Format(time.RFC3339) + "|" + raw.Detail
	return uuid.NewSHA1(signalNamespace, []byte(seed)).String()
}
