package model

import (
	"context"
	"fmt"
	"path/filepath"
)

// Artifact file names inside a model directory.
const (
	WinFile    = "win_model.json"
	MarginFile = "margin_model.json"
	TotalFile  = "total_model.json"
)

// Set groups the three independently trained models the ensemble combines.
type Set struct {
	Win    Predictor
	Margin Predictor
	Total  Predictor
}

// LoadDir loads the three artifacts from dir, validating each against expected.
func LoadDir(dir string, expected []string) (*Set, error) {
	win, err := Load(filepath.Join(dir, WinFile), expected)
	if err != nil {
		return nil, fmt.Errorf("load win model: %w", err)
	}
	margin, err := Load(filepath.Join(dir, MarginFile), expected)
	if err != nil {
		return nil, fmt.Errorf("load margin model: %w", err)
	}
	total, err := Load(filepath.Join(dir, TotalFile), expected)
	if err != nil {
		return nil, fmt.Errorf("load total model: %w", err)
	}
	return &Set{Win: win, Margin: margin, Total: total}, nil
}

// LoadRemote binds the three models served by a model server, validating each
// model's advertised feature list against expected.
func LoadRemote(ctx context.Context, client *RemoteClient, expected []string) (*Set, error) {
	set := &Set{}
	targets := []struct {
		name string
		dst  *Predictor
	}{
		{"win_model", &set.Win},
		{"margin_model", &set.Margin},
		{"total_model", &set.Total},
	}
	for _, t := range targets {
		m, err := client.Model(ctx, t.name, expected)
		if err != nil {
			return nil, fmt.Errorf("load remote %s: %w", t.name, err)
		}
		*t.dst = m
	}
	return set, nil
}
