package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alias1177/nba-predictor/models"
)

var (
	// ErrFeatureMismatch means a vector's names or order differ from what the model was trained on.
	ErrFeatureMismatch = errors.New("feature contract violation")
	// ErrArtifactNotFound means a model artifact file is missing.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrMalformedInput means a feature value is NaN or infinite.
	ErrMalformedInput = errors.New("malformed model input")
)

// Predictor is a trained model: a pure function from a feature vector to one scalar.
type Predictor interface {
	Name() string
	Features() []string
	Predict(ctx context.Context, v models.FeatureVector) (float64, error)
}

// Kind identifies how an artifact's parameters are evaluated.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindLogistic Kind = "logistic"
	KindGBRT     Kind = "gbrt"
)

// Node is one node of a regression tree. Leaves carry Value; split nodes send
// x[Feature] <= Threshold to Left and everything else to Right.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Tree is a flat array of nodes rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is a deserialized model.
type Artifact struct {
	ModelName string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Version   string    `json:"version,omitempty"`
	Names     []string  `json:"features"`
	Intercept float64   `json:"intercept,omitempty"`
	Coef      []float64 `json:"coefficients,omitempty"`
	// Means and Scales standardise inputs before the linear term when present.
	Means  []float64 `json:"means,omitempty"`
	Scales []float64 `json:"scales,omitempty"`

	Init         float64 `json:"init,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	Trees        []Tree  `json:"trees,omitempty"`
	// Probability applies a logistic link to a gbrt raw score.
	Probability bool `json:"probability,omitempty"`
}

// Load reads an artifact file and checks its feature list against expected.
func Load(path string, expected []string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if a.ModelName == "" {
		a.ModelName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := a.validate(expected); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &a, nil
}

func (a *Artifact) validate(expected []string) error {
	if err := CheckFeatures(a.Names, expected); err != nil {
		return err
	}
	n := len(a.Names)

	switch a.Kind {
	case KindLinear, KindLogistic:
		if len(a.Coef) != n {
			return fmt.Errorf("%d coefficients for %d features", len(a.Coef), n)
		}
		if len(a.Means) != 0 || len(a.Scales) != 0 {
			if len(a.Means) != n || len(a.Scales) != n {
				return fmt.Errorf("scaler needs %d means and scales", n)
			}
			for i, s := range a.Scales {
				if s == 0 {
					return fmt.Errorf("zero scale for feature %s", a.Names[i])
				}
			}
		}
	case KindGBRT:
		if len(a.Trees) == 0 {
			return errors.New("gbrt artifact has no trees")
		}
		for ti, t := range a.Trees {
			if len(t.Nodes) == 0 {
				return fmt.Errorf("tree %d is empty", ti)
			}
			for ni, node := range t.Nodes {
				if node.Leaf {
					continue
				}
				if node.Feature < 0 || node.Feature >= n {
					return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, node.Feature)
				}
				// children must come after their parent so evaluation always terminates
				if node.Left <= ni || node.Right <= ni || node.Left >= len(t.Nodes) || node.Right >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: bad child index", ti, ni)
				}
			}
		}
	default:
		return fmt.Errorf("unknown model kind %q", a.Kind)
	}
	return nil
}

// Name returns the model name.
func (a *Artifact) Name() string { return a.ModelName }

// Features returns the trained feature order.
func (a *Artifact) Features() []string { return a.Names }

// Predict evaluates the artifact. It returns ErrFeatureMismatch if v does not carry the
// trained feature names in trained order.
func (a *Artifact) Predict(_ context.Context, v models.FeatureVector) (float64, error) {
	if err := CheckFeatures(v.Names, a.Names); err != nil {
		return 0, fmt.Errorf("%s: %w", a.ModelName, err)
	}
	if len(v.Values) != len(v.Names) {
		return 0, fmt.Errorf("%s: %w: %d values for %d names", a.ModelName, ErrFeatureMismatch, len(v.Values), len(v.Names))
	}
	for i, x := range v.Values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%s: %w: %s=%v", a.ModelName, ErrMalformedInput, v.Names[i], x)
		}
	}

	switch a.Kind {
	case KindLinear:
		return a.linear(v.Values), nil
	case KindLogistic:
		return sigmoid(a.linear(v.Values)), nil
	case KindGBRT:
		raw := a.Init
		for _, t := range a.Trees {
			raw += a.LearningRate * t.eval(v.Values)
		}
		if a.Probability {
			return sigmoid(raw), nil
		}
		return raw, nil
	}
	return 0, fmt.Errorf("%s: unknown model kind %q", a.ModelName, a.Kind)
}

func (a *Artifact) linear(x []float64) float64 {
	z := a.Intercept
	for i, c := range a.Coef {
		xi := x[i]
		if len(a.Means) > 0 {
			xi = (xi - a.Means[i]) / a.Scales[i]
		}
		z += c * xi
	}
	return z
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// CheckFeatures verifies that got lists exactly the expected names in the expected order.
func CheckFeatures(got, expected []string) error {
	if len(got) != len(expected) {
		return fmt.Errorf("%w: %d features, want %d", ErrFeatureMismatch, len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrFeatureMismatch, i, got[i], expected[i])
		}
	}
	return nil
}
