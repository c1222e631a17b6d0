package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phttp "github.com/Alias1177/nba-predictor/internal/platform/http"
	"github.com/Alias1177/nba-predictor/models"
)

func modelServer(t *testing.T, advertised []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models/{name}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(modelInfo{Name: r.PathValue("name"), Features: advertised})
	})
	mux.HandleFunc("POST /predict/{name}", func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum := 0.0
		for _, name := range req.Order {
			sum += req.Features[name]
		}
		if r.PathValue("name") == "win_model" {
			sum = 0.6
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Value: sum})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient() *phttp.Client {
	return phttp.NewClient(phttp.ClientOptions{Timeout: 5 * time.Second, RequestsPerSec: 100, MaxRetryTimeout: 2 * time.Second})
}

func TestRemoteModelPredict(t *testing.T) {
	srv := modelServer(t, testFeatures)
	client := NewRemoteClient(srv.URL+"/", testClient())

	set, err := LoadRemote(context.Background(), client, testFeatures)
	require.NoError(t, err)
	assert.Equal(t, "total_model", set.Total.Name())

	total, err := set.Total.Predict(context.Background(), vec(100, 120))
	require.NoError(t, err)
	assert.Equal(t, 220.0, total)

	p, err := set.Win.Predict(context.Background(), vec(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0.6, p)
}

func TestRemoteModelContract(t *testing.T) {
	srv := modelServer(t, []string{"a", "b", "c"})
	client := NewRemoteClient(srv.URL, testClient())

	_, err := client.Model(context.Background(), "win_model", testFeatures)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestRemoteModelRejectsWrongVectorLocally(t *testing.T) {
	srv := modelServer(t, testFeatures)
	client := NewRemoteClient(srv.URL, testClient())

	m, err := client.Model(context.Background(), "margin_model", testFeatures)
	require.NoError(t, err)

	reversed := models.FeatureVector{Names: []string{"b", "a"}, Values: []float64{2, 1}}
	_, err = m.Predict(context.Background(), reversed)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestRemoteModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewRemoteClient(srv.URL, testClient()).Model(context.Background(), "win_model", testFeatures)
	require.Error(t, err)

	var statusErr *phttp.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
