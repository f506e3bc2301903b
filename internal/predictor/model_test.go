package predictor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferbot/gaffer/internal/features"
	"github.com/gafferbot/gaffer/internal/models"
)

// syntheticSamples builds a learnable dataset: points driven mostly by the
// first two features with a little seeded noise.
func syntheticSamples(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, n)
	for i := range samples {
		vec := make([]float64, features.VectorSize)
		for j := range vec {
			vec[j] = rng.Float64() * 10
		}
		actual := 0.6*vec[0] + 0.3*vec[1] + rng.NormFloat64()*0.5
		if actual < 0 {
			actual = 0
		}
		samples[i] = Sample{Vector: vec, Actual: actual}
	}
	return samples
}

func trainedModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel("gbm-test-1")
	_, err := m.Train(models.Midfielder, syntheticSamples(200, 7), DefaultTrainParams())
	require.NoError(t, err)
	return m
}

func featuresFor(vec []float64) *features.PlayerFeatures {
	return &features.PlayerFeatures{
		PlayerID:       1,
		Gameweek:       10,
		FeatureVersion: features.FeatureVersion,
		Vector:         vec,
	}
}

func TestModel_TrainBeatsBaseline(t *testing.T) {
	samples := syntheticSamples(200, 7)
	m := NewModel("gbm-test-1")
	art, err := m.Train(models.Midfielder, samples, DefaultTrainParams())
	require.NoError(t, err)
	require.NotEmpty(t, art.Boosters[0].Trees)

	// A fitted booster must beat the constant-mean baseline on the holdout.
	holdout := samples[len(samples)-40:]
	baseline := &Booster{BaseScore: art.Boosters[0].BaseScore}
	assert.Less(t, rmseOn(art.Boosters[0], holdout), rmseOn(baseline, holdout))
}

func TestModel_PredictDeterministic(t *testing.T) {
	m := trainedModel(t)
	vec := syntheticSamples(1, 99)[0].Vector

	first, err := m.Predict(featuresFor(vec), models.Midfielder)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.Predict(featuresFor(vec), models.Midfielder)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestModel_PredictNonNegative(t *testing.T) {
	m := trainedModel(t)
	for _, s := range syntheticSamples(50, 3) {
		res, err := m.Predict(featuresFor(s.Vector), models.Midfielder)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.ExpectedPoints, 0.0)
		assert.Greater(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestModel_UnknownPositionAndContract(t *testing.T) {
	m := trainedModel(t)
	vec := syntheticSamples(1, 5)[0].Vector

	_, err := m.Predict(featuresFor(vec), models.Goalkeeper)
	assert.Error(t, err)

	stale := featuresFor(vec)
	stale.FeatureVersion = "fv0"
	_, err = m.Predict(stale, models.Midfielder)
	assert.Error(t, err)
}

func TestModel_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := trainedModel(t)
	require.NoError(t, m.Save(dir))

	loaded := NewModel("gbm-test-1")
	require.NoError(t, loaded.Load(dir))
	require.Equal(t, []models.Position{models.Midfielder}, loaded.Positions())

	vec := syntheticSamples(1, 11)[0].Vector
	want, err := m.Predict(featuresFor(vec), models.Midfielder)
	require.NoError(t, err)
	got, err := loaded.Predict(featuresFor(vec), models.Midfielder)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestModel_LoadRejectsOtherVersions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, trainedModel(t).Save(dir))

	other := NewModel("gbm-test-2")
	assert.Error(t, other.Load(dir))
}

func TestModel_EnsembleAveraging(t *testing.T) {
	samples := syntheticSamples(200, 7)
	m := NewModel("gbm-test-1")
	_, err := m.Train(models.Midfielder, samples, DefaultTrainParams())
	require.NoError(t, err)

	shallow := DefaultTrainParams()
	shallow.MaxDepth = 2
	require.NoError(t, m.AddEnsembleMember(models.Midfielder, samples, shallow))

	res, err := m.Predict(featuresFor(samples[0].Vector), models.Midfielder)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ExpectedPoints, 0.0)
}

func TestFitBooster_TooFewSamples(t *testing.T) {
	_, _, err := fitBooster(syntheticSamples(5, 1), DefaultTrainParams())
	assert.Error(t, err)
}
