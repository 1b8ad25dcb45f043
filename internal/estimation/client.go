package estimation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Image is the photo handed to the estimator.
type Image struct {
	Data     []byte
	Filename string
	MIME     string
}

// Estimator scores a photo. Any error means "a person must look at it".
type Estimator interface {
	Estimate(ctx context.Context, img Image) (Estimate, error)
}

// Config points the client at the embedding service.
type Config struct {
	BaseURL string
	TopK    int
	Timeout time.Duration
}

// Client talks to the embedding service: POST /embed with the photo,
// then POST /estimate with the returned vector.
type Client struct {
	baseURL string
	topK    int
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8001"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		topK:    cfg.TopK,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

var ErrEmptyImage = errors.New("estimation: empty image")

func (c *Client) Estimate(ctx context.Context, img Image) (Estimate, error) {
	if len(img.Data) == 0 {
		return Estimate{}, ErrEmptyImage
	}
	vec, err := c.embed(ctx, img)
	if err != nil {
		return Estimate{}, fmt.Errorf("embed: %w", err)
	}

	payload, err := json.Marshal(map[string]any{"embedding": vec, "top_k": c.topK})
	if err != nil {
		return Estimate{}, err
	}
	body, err := c.post(ctx, "/estimate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return Estimate{}, fmt.Errorf("estimate: %w", err)
	}
	return Parse(body)
}

func (c *Client) embed(ctx context.Context, img Image) ([]float64, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := img.Filename
	if name == "" {
		name = "image.jpg"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(img.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "/embed", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("empty embedding")
	}
	return out.Embedding, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
