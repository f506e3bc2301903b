package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferbot/gaffer/internal/models"
)

func testIndex() *NameIndex {
	return NewNameIndex([]models.Player{
		{ID: 1, WebName: "M.Salah", FirstName: "Mohamed", LastName: "Salah"},
		{ID: 2, WebName: "Haaland", FirstName: "Erling", LastName: "Haaland"},
		{ID: 3, WebName: "Saka", FirstName: "Bukayo", LastName: "Saka"},
	})
}

func testClassifier() *Classifier {
	return NewClassifier(testIndex(), DefaultGates())
}

func rawSignal(typ models.SignalType, name, detail string, reliability float64) models.RawSignal {
	return models.RawSignal{
		SourceID:          "press",
		SourceReliability: reliability,
		Type:              typ,
		PlayerName:        name,
		Detail:            detail,
		ObservedAt:        time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestClassify_ConfidenceTokens(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		detail string
		want   float64
	}{
		{"Haaland ruled out for the visit of Spurs", 0.7},       // high token
		{"Haaland expected to start up front", 0.6},             // medium token
		{"Haaland might be rested, sources say", 0.3},           // low token
		{"Haaland confirmed fit but could be rotated", 0.5},     // high and low cancel to +0
		{"Haaland trains normally", 0.5},                        // no tokens
	}
	for _, tt := range tests {
		sig := c.Classify(rawSignal(models.SignalInjury, "Haaland", tt.detail, 0.5))
		assert.InDelta(t, tt.want, sig.Confidence, 1e-9, tt.detail)
	}
}

func TestClassify_ConfidenceClamped(t *testing.T) {
	c := testClassifier()

	high := c.Classify(rawSignal(models.SignalInjury, "Haaland", "officially confirmed out", 0.95))
	assert.Equal(t, 1.0, high.Confidence)

	low := c.Classify(rawSignal(models.SignalInjury, "Haaland", "rumour: might leave", 0.1))
	assert.Equal(t, 0.0, low.Confidence)
}

func TestClassify_PlayerResolution(t *testing.T) {
	c := testClassifier()

	exact := c.Classify(rawSignal(models.SignalInjury, "haaland", "out for weeks", 0.9))
	require.NotNil(t, exact.PlayerID)
	assert.Equal(t, uint(2), *exact.PlayerID)
	assert.Equal(t, 100, exact.MatchScore)

	// Token order must not matter for full names.
	swapped := c.Classify(rawSignal(models.SignalInjury, "Salah Mohamed", "out for weeks", 0.9))
	require.NotNil(t, swapped.PlayerID)
	assert.Equal(t, uint(1), *swapped.PlayerID)

	// A near-miss spelling still resolves via fuzzy matching.
	fuzzy := c.Classify(rawSignal(models.SignalInjury, "Halaand", "out for weeks", 0.9))
	require.NotNil(t, fuzzy.PlayerID)
	assert.Equal(t, uint(2), *fuzzy.PlayerID)
	assert.GreaterOrEqual(t, fuzzy.MatchScore, 60)

	// Garbage stays unresolved.
	miss := c.Classify(rawSignal(models.SignalInjury, "Quixote", "out for weeks", 0.9))
	assert.Nil(t, miss.PlayerID)
}

func TestClassify_SeverityTiers(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		typ    models.SignalType
		detail string
		want   models.Severity
	}{
		{models.SignalInjury, "ACL surgery, out for the season", models.SeverityCritical},
		{models.SignalInjury, "sidelined for three weeks", models.SeverityHigh},
		{models.SignalRotation, "doubtful after a knock", models.SeverityMedium},
		{models.SignalPressConference, "manager praised his attitude", models.SeverityLow},
		// Structural defaults when the text says nothing.
		{models.SignalSuspension, "misses the next match", models.SeverityHigh},
		{models.SignalInjury, "left the pitch early", models.SeverityHigh},
		{models.SignalRotation, "squad management likely", models.SeverityMedium},
	}
	for _, tt := range tests {
		sig := c.Classify(rawSignal(tt.typ, "Haaland", tt.detail, 0.8))
		assert.Equal(t, tt.want, sig.Severity, tt.detail)
	}
}

func TestClassify_ActionabilityGates(t *testing.T) {
	c := testClassifier()

	// CRITICAL passes on the base gates alone.
	critical := c.Classify(rawSignal(models.SignalInjury, "Haaland", "season-ending surgery confirmed", 0.5))
	assert.True(t, critical.Actionable)

	// HIGH needs confidence >= 0.7: reliability 0.45 + 0.2 token = 0.65 fails.
	weakHigh := c.Classify(rawSignal(models.SignalInjury, "Haaland", "ruled out for weeks", 0.45))
	assert.False(t, weakHigh.Actionable)
	strongHigh := c.Classify(rawSignal(models.SignalInjury, "Haaland", "ruled out for weeks", 0.6))
	assert.True(t, strongHigh.Actionable)

	// MEDIUM needs 0.8 confidence.
	medium := c.Classify(rawSignal(models.SignalRotation, "Haaland", "expected to be rested", 0.6))
	assert.False(t, medium.Actionable)
	strongMedium := c.Classify(rawSignal(models.SignalRotation, "Haaland", "confirmed rested", 0.7))
	assert.True(t, strongMedium.Actionable)

	// LOW is never actionable no matter the confidence.
	low := c.Classify(rawSignal(models.SignalPressConference, "Haaland", "confirmed happy at the club", 0.9))
	assert.False(t, low.Actionable)

	// Unresolved player fails the match floor.
	unmatched := c.Classify(rawSignal(models.SignalInjury, "Quixote", "ruled out for weeks", 0.9))
	assert.False(t, unmatched.Actionable)

	// Lineup leaks waive the match floor.
	leak := c.Classify(rawSignal(models.SignalLineupLeak, "Quixote", "confirmed not in the squad for weeks", 0.9))
	assert.True(t, leak.Actionable)
}

func TestClassify_TranscriptSignalsExpireSooner(t *testing.T) {
	c := testClassifier()
	observed := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	structured := c.Classify(rawSignal(models.SignalInjury, "Haaland", "out for weeks", 0.8))
	assert.Equal(t, observed.AddDate(0, 0, 30), structured.ExpiresAt)

	transcript := c.Classify(rawSignal(models.SignalPressConference, "Haaland", "manager hinted at rotation", 0.8))
	assert.Equal(t, observed.AddDate(0, 0, 7), transcript.ExpiresAt)
}

func TestClassify_GatesAreTunable(t *testing.T) {
	// Reliability 0.6 + the "ruled out" token lands at 0.8 confidence on a
	// HIGH-severity signal with an exact name match.
	raw := rawSignal(models.SignalInjury, "Haaland", "ruled out for weeks", 0.6)

	lenient := NewClassifier(testIndex(), DefaultGates())
	assert.True(t, lenient.Classify(raw).Actionable)

	// Raising the base floor to 0.75 pushes the HIGH tier to 0.85.
	strict := NewClassifier(testIndex(), Gates{MinConfidence: 0.75})
	assert.False(t, strict.Classify(raw).Actionable)

	// Zero fields fall back to the defaults.
	assert.Equal(t, 30, strict.gates.SignalTTLDays)
	assert.Equal(t, 70, strict.gates.MinMatchScore)
}

func TestClassify_Pure(t *testing.T) {
	c := testClassifier()
	raw := rawSignal(models.SignalInjury, "Haaland", "ruled out for weeks", 0.8)

	first := c.Classify(raw)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, c.Classify(raw))
	}
	assert.NotEmpty(t, first.SignalID)
}

func TestClassify_SentimentOnPressConference(t *testing.T) {
	c := testClassifier()

	pos := c.Classify(rawSignal(models.SignalPressConference, "Saka", "back in training and in contention", 0.8))
	assert.Equal(t, models.SentimentPositive, pos.Sentiment)
	assert.Equal(t, models.ImpliedNone, pos.ImpliedStatus)

	neg := c.Classify(rawSignal(models.SignalPressConference, "Saka", "dropped after a poor run", 0.8))
	assert.Equal(t, models.SentimentNegative, neg.Sentiment)

	// Availability-bearing types stay neutral; their meaning is the status.
	inj := c.Classify(rawSignal(models.SignalInjury, "Saka", "out for weeks", 0.8))
	assert.Equal(t, models.SentimentNeutral, inj.Sentiment)
	assert.Equal(t, models.ImpliedInjured, inj.ImpliedStatus)
}

func TestClassifyAll_DeterministicOrder(t *testing.T) {
	c := testClassifier()
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	a := models.RawSignal{SourceID: "beat", Type: models.SignalInjury, PlayerName: "Saka", Detail: "knock", ObservedAt: base.Add(time.Hour), SourceReliability: 0.7}
	b := models.RawSignal{SourceID: "press", Type: models.SignalRotation, PlayerName: "Haaland", Detail: "rested", ObservedAt: base, SourceReliability: 0.7}

	forward := c.ClassifyAll([]models.RawSignal{a, b})
	reversed := c.ClassifyAll([]models.RawSignal{b, a})
	require.Len(t, forward, 2)
	assert.Equal(t, forward[0].SignalID, reversed[0].SignalID)
	assert.Equal(t, "press", forward[0].Source)
}

func TestTokenSortRatio(t *testing.T) {
	assert.Equal(t, 100, tokenSortRatio("Mohamed Salah", "salah mohamed"))
	assert.GreaterOrEqual(t, tokenSortRatio("Halaand", "haaland"), 60)
	assert.Less(t, tokenSortRatio("Quixote", "haaland"), 60)
	assert.Equal(t, 0, tokenSortRatio("", "haaland"))
}
