package adjuster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
)

func testAdjuster() *Adjuster {
	return New(&config.Config{
		CalibrationMinSamplesPosition: 20,
		CalibrationMinSamplesBracket:  30,
		PremiumPriceFloor:             120,
		PremiumFormFloor:              5.0,
	})
}

func availablePlayer() *models.Player {
	return &models.Player{
		ID:       1,
		Position: models.Midfielder,
		NowCost:  85,
		Form:     4.0,
		Status:   models.StatusAvailable,
	}
}

func intp(v int) *int { return &v }

type fakeCalibration struct {
	posCorr, brCorr     float64
	posCount, brCount   int
}

func (f *fakeCalibration) PositionCorrection(models.Position) (float64, int) {
	return f.posCorr, f.posCount
}

func (f *fakeCalibration) BracketCorrection(string) (float64, int) {
	return f.brCorr, f.brCount
}

func TestAdjust_UpstreamStatusZeroes(t *testing.T) {
	a := testAdjuster()

	for _, status := range []models.AvailabilityStatus{models.StatusUnavailable, models.StatusSuspended} {
		p := availablePlayer()
		p.Status = status
		adj := a.Adjust(p, 6.0, nil, nil)
		assert.Zero(t, adj.Final, status)
	}
}

func TestAdjust_ChanceOfPlayingSteps(t *testing.T) {
	a := testAdjuster()

	tests := []struct {
		cop  *int
		want float64
	}{
		{intp(0), 0.6},
		{intp(25), 1.8},
		{intp(50), 3.6},
		{intp(75), 4.8},
		{intp(100), 6.0},
		{nil, 3.6}, // unreported: mid band
	}
	for _, tt := range tests {
		p := availablePlayer()
		p.Status = models.StatusInjured
		p.ChanceOfPlaying = tt.cop
		adj := a.Adjust(p, 6.0, nil, nil)
		assert.InDelta(t, tt.want, adj.Final, 1e-9)
	}
}

func TestAdjust_UnavailableOverridesPositiveNews(t *testing.T) {
	a := testAdjuster()
	p := availablePlayer()
	p.Status = models.StatusUnavailable

	good := &models.IntelligenceSignal{
		Actionable: true,
		Sentiment:  models.SentimentPositive,
		Confidence: 0.9,
	}
	adj := a.Adjust(p, 6.0, []*models.IntelligenceSignal{good}, nil)
	assert.Zero(t, adj.Final)
}

func TestAdjust_SignalMultipliers(t *testing.T) {
	a := testAdjuster()

	// Injury signal the upstream does not corroborate.
	injury := &models.IntelligenceSignal{
		Actionable:    true,
		ImpliedStatus: models.ImpliedInjured,
		Confidence:    1.0,
	}
	adj := a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{injury}, nil)
	assert.InDelta(t, 7.0, adj.Final, 1e-9)

	// Doubt signal.
	doubt := &models.IntelligenceSignal{
		Actionable:    true,
		ImpliedStatus: models.ImpliedDoubtful,
		Confidence:    0.5,
	}
	adj = a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{doubt}, nil)
	assert.InDelta(t, 9.0, adj.Final, 1e-9)

	// Uncorroborated suspension claims are ignored.
	susp := &models.IntelligenceSignal{
		Actionable:    true,
		ImpliedStatus: models.ImpliedSuspended,
		Confidence:    1.0,
	}
	adj = a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{susp}, nil)
	assert.InDelta(t, 10.0, adj.Final, 1e-9)

	// Non-actionable signals never touch the number.
	quiet := &models.IntelligenceSignal{
		ImpliedStatus: models.ImpliedInjured,
		Confidence:    1.0,
	}
	adj = a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{quiet}, nil)
	assert.InDelta(t, 10.0, adj.Final, 1e-9)
}

func TestAdjust_SentimentNudges(t *testing.T) {
	a := testAdjuster()

	pos := &models.IntelligenceSignal{
		Actionable: true,
		Sentiment:  models.SentimentPositive,
		Confidence: 0.5,
	}
	adj := a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{pos}, nil)
	assert.InDelta(t, 11.0, adj.Final, 1e-9)

	neg := &models.IntelligenceSignal{
		Actionable: true,
		Sentiment:  models.SentimentNegative,
		Confidence: 1.0,
	}
	adj = a.Adjust(availablePlayer(), 10.0, []*models.IntelligenceSignal{neg}, nil)
	assert.InDelta(t, 8.5, adj.Final, 1e-9)

	// Sentiment only applies to fully available players.
	p := availablePlayer()
	p.Status = models.StatusDoubtful
	adj = a.Adjust(p, 10.0, []*models.IntelligenceSignal{pos}, nil)
	assert.InDelta(t, 10.0, adj.Final, 1e-9)
}

func TestAdjust_CalibrationGates(t *testing.T) {
	a := testAdjuster()

	// Both cells above their sample gates: both corrections are added.
	calib := &fakeCalibration{posCorr: -0.5, posCount: 25, brCorr: -0.3, brCount: 35}
	adj := a.Adjust(availablePlayer(), 6.0, nil, calib)
	assert.InDelta(t, 5.2, adj.Final, 1e-9)

	// Below the gates nothing applies.
	thin := &fakeCalibration{posCorr: -0.5, posCount: 19, brCorr: -0.3, brCount: 29}
	adj = a.Adjust(availablePlayer(), 6.0, nil, thin)
	assert.InDelta(t, 6.0, adj.Final, 1e-9)
}

func TestAdjust_PremiumFloor(t *testing.T) {
	a := testAdjuster()

	p := availablePlayer()
	p.NowCost = 130
	p.Form = 7.0

	adj := a.Adjust(p, 1.5, nil, nil)
	assert.InDelta(t, 4.2, adj.Final, 1e-9) // 0.6 * form

	// Already above the floor: untouched.
	adj = a.Adjust(p, 6.0, nil, nil)
	assert.InDelta(t, 6.0, adj.Final, 1e-9)

	// Out of form or cheap: no floor.
	p.Form = 4.0
	adj = a.Adjust(p, 1.5, nil, nil)
	assert.InDelta(t, 1.5, adj.Final, 1e-9)

	// The floor never resurrects a suspended player.
	p.Form = 7.0
	p.Status = models.StatusSuspended
	adj = a.Adjust(p, 6.0, nil, nil)
	assert.Zero(t, adj.Final)
}

func TestAdjust_NonNegativeAndAudit(t *testing.T) {
	a := testAdjuster()

	calib := &fakeCalibration{posCorr: -5.0, posCount: 25}
	adj := a.Adjust(availablePlayer(), 2.0, nil, calib)
	assert.Zero(t, adj.Final)

	require.NotEmpty(t, adj.Factors)
	audit := adj.AuditJSON()
	assert.Contains(t, audit, "calibration_position")
	assert.Contains(t, audit, "non_negative_clamp")

	// No factors, no audit noise.
	clean := a.Adjust(availablePlayer(), 2.0, nil, nil)
	assert.Empty(t, clean.AuditJSON())
	assert.Equal(t, 2.0, clean.Final)
}
