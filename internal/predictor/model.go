package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/features"
	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// Artifact is the persisted form of one position's model: one booster per
// ensemble member, evaluated as an equal-weight average.
type Artifact struct {
	ModelVersion   string          `json:"model_version"`
	FeatureVersion string          `json:"feature_version"`
	Position       models.Position `json:"position"`
	TrainedAt      time.Time       `json:"trained_at"`
	TrainSamples   int             `json:"train_samples"`
	ValidationRMSE float64         `json:"validation_rmse"`
	Boosters       []*Booster      `json:"boosters"`
}

func (a *Artifact) eval(x []float64) float64 {
	sum := 0.0
	for _, b := range a.Boosters {
		sum += b.Eval(x)
	}
	return sum / float64(len(a.Boosters))
}

// Model is the per-position gradient-boosted predictor.
type Model struct {
	version   string
	artifacts map[models.Position]*Artifact
	log       *logrus.Entry
}

// NewModel builds an empty model shell; positions are added by Train or Load.
func NewModel(version string) *Model {
	return &Model{
		version:   version,
		artifacts: make(map[models.Position]*Artifact),
		log:       logger.WithComponent("predictor"),
	}
}

func (m *Model) Version() string { return m.version }

// Predict evaluates the position's artefact on the vector. Expected points
// never go below zero; confidence shrinks with the artefact's validation
// error.
func (m *Model) Predict(pf *features.PlayerFeatures, pos models.Position) (Result, error) {
	art, ok := m.artifacts[pos]
	if !ok {
		return Result{}, fmt.Errorf("no model for position %s in version %s", pos, m.version)
	}
	if art.FeatureVersion != pf.FeatureVersion {
		return Result{}, fmt.Errorf("model %s expects features %s, got %s",
			m.version, art.FeatureVersion, pf.FeatureVersion)
	}
	if len(pf.Vector) != features.VectorSize {
		return Result{}, fmt.Errorf("feature vector has %d values, want %d", len(pf.Vector), features.VectorSize)
	}

	xp := art.eval(pf.Vector)
	if xp < 0 {
		xp = 0
	}
	return Result{
		ExpectedPoints: xp,
		Confidence:     confidenceFrom(art.ValidationRMSE),
	}, nil
}

// Train fits one position's artefact from chronological samples and
// registers it on the model.
func (m *Model) Train(pos models.Position, samples []Sample, p TrainParams) (*Artifact, error) {
	booster, valRMSE, err := fitBooster(samples, p)
	if err != nil {
		return nil, fmt.Errorf("training %s: %w", pos, err)
	}

	art := &Artifact{
		ModelVersion:   m.version,
		FeatureVersion: features.FeatureVersion,
		Position:       pos,
		TrainedAt:      time.Now().UTC(),
		TrainSamples:   len(samples),
		ValidationRMSE: valRMSE,
		Boosters:       []*Booster{booster},
	}
	m.artifacts[pos] = art

	m.log.WithFields(logrus.Fields{
		"position":        pos,
		"samples":         len(samples),
		"trees":           len(booster.Trees),
		"validation_rmse": valRMSE,
	}).Info("Trained position model")
	return art, nil
}

// AddEnsembleMember fits another booster on the same samples (typically a
// different depth or rate) and averages it into the position's artefact.
func (m *Model) AddEnsembleMember(pos models.Position, samples []Sample, p TrainParams) error {
	art, ok := m.artifacts[pos]
	if !ok {
		return fmt.Errorf("position %s has no base artefact", pos)
	}
	booster, valRMSE, err := fitBooster(samples, p)
	if err != nil {
		return err
	}
	art.Boosters = append(art.Boosters, booster)
	if valRMSE > art.ValidationRMSE {
		art.ValidationRMSE = valRMSE // conservative: report the worst member
	}
	return nil
}

// Positions lists the positions the model can serve.
func (m *Model) Positions() []models.Position {
	out := make([]models.Position, 0, len(m.artifacts))
	for _, pos := range models.Positions {
		if _, ok := m.artifacts[pos]; ok {
			out = append(out, pos)
		}
	}
	return out
}

// Save writes every position artefact to dir as gbm_<POS>.json.
func (m *Model) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}
	for pos, art := range m.artifacts {
		data, err := json.MarshalIndent(art, "", " ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, artifactFile(pos))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// Load reads all position artefacts for the model's version from dir.
// Artefacts for other versions or feature contracts are rejected.
func (m *Model) Load(dir string) error {
	loaded := 0
	for _, pos := range models.Positions {
		path := filepath.Join(dir, artifactFile(pos))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		var art Artifact
		if err := json.Unmarshal(data, &art); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if art.ModelVersion != m.version {
			m.log.WithFields(logrus.Fields{
				"path":    path,
				"version": art.ModelVersion,
			}).Warn("Skipping artefact from a different model version")
			continue
		}
		if art.FeatureVersion != features.FeatureVersion {
			return fmt.Errorf("%s built on features %s, binary speaks %s",
				path, art.FeatureVersion, features.FeatureVersion)
		}
		m.artifacts[pos] = &art
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no %s artefacts found in %s", m.version, dir)
	}
	return nil
}

func artifactFile(pos models.Position) string {
	return fmt.Sprintf("gbm_%s.json", pos)
}

// confidenceFrom maps validation RMSE to 0..1: an error of zero is near
// certainty, ten points of error is near none.
func confidenceFrom(rmse float64) float64 {
	c := 1.0 - rmse/10.0
	if c < 0.05 {
		return 0.05
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}
