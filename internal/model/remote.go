package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	phttp "github.com/Alias1177/nba-predictor/internal/platform/http"
	"github.com/Alias1177/nba-predictor/models"
)

// RemoteClient talks to a model server that hosts the trained artifacts.
type RemoteClient struct {
	baseURL string
	http    *phttp.Client
	logger  zerolog.Logger
}

// NewRemoteClient creates a client for the model server at baseURL.
func NewRemoteClient(baseURL string, httpClient *phttp.Client) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.With().Str("component", "model_server").Logger(),
	}
}

type modelInfo struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
}

type predictRequest struct {
	Order    []string           `json:"order"`
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Value float64 `json:"value"`
}

// Model fetches a model's feature contract and returns a predictor bound to it.
func (c *RemoteClient) Model(ctx context.Context, name string, expected []string) (*RemoteModel, error) {
	var info modelInfo
	if err := c.getJSON(ctx, "/models/"+url.PathEscape(name), &info); err != nil {
		return nil, err
	}
	if err := CheckFeatures(info.Features, expected); err != nil {
		return nil, fmt.Errorf("remote %s: %w", name, err)
	}
	c.logger.Debug().Str("model", name).Int("features", len(info.Features)).Msg("Bound remote model")
	return &RemoteModel{client: c, name: name, features: info.Features}, nil
}

func (c *RemoteClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	})
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decode(resp.Body, out)
}

func (c *RemoteClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decode(resp.Body, out)
}

func decode(r io.Reader, out any) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// RemoteModel is a Predictor evaluated by the model server.
type RemoteModel struct {
	client   *RemoteClient
	name     string
	features []string
}

func (m *RemoteModel) Name() string       { return m.name }
func (m *RemoteModel) Features() []string { return m.features }

// Predict sends the vector to the server after checking the feature contract locally.
func (m *RemoteModel) Predict(ctx context.Context, v models.FeatureVector) (float64, error) {
	if err := CheckFeatures(v.Names, m.features); err != nil {
		return 0, fmt.Errorf("%s: %w", m.name, err)
	}
	var out predictResponse
	req := predictRequest{Order: v.Names, Features: v.Map()}
	if err := m.client.postJSON(ctx, "/predict/"+url.PathEscape(m.name), req, &out); err != nil {
		return 0, fmt.Errorf("%s: %w", m.name, err)
	}
	return out.Value, nil
}

var (
	_ Predictor = (*Artifact)(nil)
	_ Predictor = (*RemoteModel)(nil)
)
