package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TEIEmbedder calls a Hugging Face text-embeddings-inference server.
type TEIEmbedder struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type teiRequest struct {
	Inputs []string `json:"inputs"`
}

type teiResponse [][]float32

func NewTEIEmbedder(opts Options, logger *zap.Logger) *TEIEmbedder {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TEIEmbedder{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Embed implements Embedder.
func (e *TEIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(teiRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Error("tei embedding request failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("TEI API returned status %d", resp.StatusCode)
	}

	var teiResp teiResponse
	if err := json.NewDecoder(resp.Body).Decode(&teiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := make([][]float64, len(teiResp))
	for i, v := range teiResp {
		out[i] = widen(v)
	}
	return out, nil
}
