package estimation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEmbedsThenEstimates(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/embed":
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "carro.jpg", hdr.Filename)
			assert.Equal(t, []byte("jpeg-bytes"), data)
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2}})
		case "/estimate":
			var in struct {
				Embedding []float64 `json:"embedding"`
				TopK      int       `json:"top_k"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, []float64{0.1, 0.2}, in.Embedding)
			assert.Equal(t, 5, in.TopK)
			_, _ = w.Write([]byte(`{"threshold_passed": true, "suggested_value": 500, "best_match_status_faz": "1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	e, err := c.Estimate(context.Background(), Image{Data: []byte("jpeg-bytes"), Filename: "carro.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/embed", "/estimate"}, calls)
	assert.True(t, e.Quotable())
	assert.Equal(t, 500.0, *e.Value)
}

func TestClientSurfacesServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Estimate(context.Background(), Image{Data: []byte("x")})
	assert.Error(t, err)

	_, err = c.Estimate(context.Background(), Image{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}
