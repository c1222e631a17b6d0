package model

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/nba-predictor/models"
)

var testFeatures = []string{"a", "b"}

func vec(a, b float64) models.FeatureVector {
	return models.FeatureVector{Names: []string{"a", "b"}, Values: []float64{a, b}}
}

func writeArtifact(t *testing.T, dir, file string, a Artifact) string {
	t.Helper()
	b, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestArtifactPredict(t *testing.T) {
	tests := []struct {
		name     string
		artifact Artifact
		input    models.FeatureVector
		expected float64
	}{
		{
			name:     "linear",
			artifact: Artifact{Kind: KindLinear, Names: testFeatures, Intercept: 220, Coef: []float64{2, -1}},
			input:    vec(3, 4),
			expected: 222,
		},
		{
			name: "linear with scaler",
			artifact: Artifact{Kind: KindLinear, Names: testFeatures, Intercept: 1, Coef: []float64{1, 1},
				Means: []float64{10, 0}, Scales: []float64{2, 4}},
			input:    vec(14, 8),
			expected: 5,
		},
		{
			name:     "logistic at zero",
			artifact: Artifact{Kind: KindLogistic, Names: testFeatures, Coef: []float64{1, -1}},
			input:    vec(2, 2),
			expected: 0.5,
		},
		{
			name:     "logistic",
			artifact: Artifact{Kind: KindLogistic, Names: testFeatures, Intercept: 0.5, Coef: []float64{0.25, 0}},
			input:    vec(2, 9),
			expected: 1 / (1 + math.Exp(-1)),
		},
		{
			name: "gbrt",
			artifact: Artifact{Kind: KindGBRT, Names: testFeatures, Init: 3, LearningRate: 0.5, Trees: []Tree{
				{Nodes: []Node{
					{Feature: 0, Threshold: 1, Left: 1, Right: 2},
					{Leaf: true, Value: -2},
					{Leaf: true, Value: 4},
				}},
				{Nodes: []Node{
					{Feature: 1, Threshold: 0, Left: 1, Right: 2},
					{Leaf: true, Value: 10},
					{Leaf: true, Value: 1},
				}},
			}},
			input:    vec(5, -1),
			expected: 3 + 0.5*4 + 0.5*10,
		},
		{
			name: "gbrt probability",
			artifact: Artifact{Kind: KindGBRT, Names: testFeatures, Probability: true, LearningRate: 1, Trees: []Tree{
				{Nodes: []Node{{Leaf: true, Value: 0}}},
			}},
			input:    vec(0, 0),
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.artifact
			require.NoError(t, a.validate(testFeatures))
			got, err := a.Predict(context.Background(), tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestArtifactPredictRejects(t *testing.T) {
	a := &Artifact{ModelName: "total_model", Kind: KindLinear, Names: testFeatures, Coef: []float64{1, 1}}

	tests := []struct {
		name  string
		input models.FeatureVector
		err   error
	}{
		{name: "reordered", input: models.FeatureVector{Names: []string{"b", "a"}, Values: []float64{1, 2}}, err: ErrFeatureMismatch},
		{name: "missing feature", input: models.FeatureVector{Names: []string{"a"}, Values: []float64{1}}, err: ErrFeatureMismatch},
		{name: "extra feature", input: models.FeatureVector{Names: []string{"a", "b", "c"}, Values: []float64{1, 2, 3}}, err: ErrFeatureMismatch},
		{name: "short values", input: models.FeatureVector{Names: []string{"a", "b"}, Values: []float64{1}}, err: ErrFeatureMismatch},
		{name: "nan", input: vec(math.NaN(), 1), err: ErrMalformedInput},
		{name: "inf", input: vec(1, math.Inf(-1)), err: ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Predict(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("name defaults to file name", func(t *testing.T) {
		path := writeArtifact(t, dir, "margin_model.json", Artifact{Kind: KindLinear, Names: testFeatures, Coef: []float64{1, 2}})
		a, err := Load(path, testFeatures)
		require.NoError(t, err)
		assert.Equal(t, "margin_model", a.Name())
		assert.Equal(t, testFeatures, a.Features())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"), testFeatures)
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})

	t.Run("feature contract", func(t *testing.T) {
		path := writeArtifact(t, dir, "win.json", Artifact{Kind: KindLogistic, Names: []string{"b", "a"}, Coef: []float64{1, 2}})
		_, err := Load(path, testFeatures)
		assert.ErrorIs(t, err, ErrFeatureMismatch)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := Load(path, testFeatures)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		artifact Artifact
	}{
		{name: "coefficient count", artifact: Artifact{Kind: KindLinear, Names: testFeatures, Coef: []float64{1}}},
		{name: "partial scaler", artifact: Artifact{Kind: KindLinear, Names: testFeatures, Coef: []float64{1, 1}, Means: []float64{0, 0}}},
		{name: "zero scale", artifact: Artifact{Kind: KindLinear, Names: testFeatures, Coef: []float64{1, 1}, Means: []float64{0, 0}, Scales: []float64{1, 0}}},
		{name: "no trees", artifact: Artifact{Kind: KindGBRT, Names: testFeatures}},
		{name: "feature out of range", artifact: Artifact{Kind: KindGBRT, Names: testFeatures, Trees: []Tree{{Nodes: []Node{
			{Feature: 2, Left: 1, Right: 2}, {Leaf: true}, {Leaf: true},
		}}}}},
		{name: "cycle", artifact: Artifact{Kind: KindGBRT, Names: testFeatures, Trees: []Tree{{Nodes: []Node{
			{Feature: 0, Left: 0, Right: 1}, {Leaf: true},
		}}}}},
		{name: "unknown kind", artifact: Artifact{Kind: "forest", Names: testFeatures}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.artifact.validate(testFeatures))
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, WinFile, Artifact{Kind: KindLogistic, Names: testFeatures, Coef: []float64{0, 0}})
	writeArtifact(t, dir, MarginFile, Artifact{Kind: KindLinear, Names: testFeatures, Intercept: 6, Coef: []float64{0, 0}})

	_, err := LoadDir(dir, testFeatures)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	writeArtifact(t, dir, TotalFile, Artifact{Kind: KindLinear, Names: testFeatures, Intercept: 220, Coef: []float64{0, 0}})
	set, err := LoadDir(dir, testFeatures)
	require.NoError(t, err)

	total, err := set.Total.Predict(context.Background(), vec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 220.0, total)
	assert.Equal(t, "win_model", set.Win.Name())
}
