// Package upload sends generation records to the evaluation service.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/generation"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string        `validate:"required,url"`
	APIKey  string        `validate:"required"`
	Timeout time.Duration
}

// Client posts generation records to <BaseURL>/api/eval.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Upload posts records under datasetName.
func (c *Client) Upload(ctx context.Context, datasetName string, records []generation.Record) error {
	body, err := json.Marshal(records)
	if err != nil {
		return services.WrapError(services.ErrorTypeInternal, "failed to encode records", err)
	}
	return c.post(ctx, datasetName, body, len(records))
}

// UploadFile posts the JSON document at path under datasetName. The file must hold a
// JSON array of records.
func (c *Client) UploadFile(ctx context.Context, path, datasetName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "failed to read generations file", err).
			WithDetail("path", path)
	}
	var records []generation.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "generations file is not a list of records", err).
			WithDetail("path", path)
	}
	return c.post(ctx, datasetName, data, len(records))
}

func (c *Client) post(ctx context.Context, datasetName string, body []byte, count int) error {
	query := url.Values{}
	query.Set("datasetName", datasetName)
	query.Set("apiKey", c.apiKey)
	endpoint := c.baseURL + "/api/eval?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return services.WrapError(services.ErrorTypeInternal, "failed to create upload request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upload request failed", zap.String("dataset", datasetName), zap.Error(err))
		return uploadFailed(datasetName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("upload rejected",
			zap.String("dataset", datasetName),
			zap.Int("status", resp.StatusCode))
		return uploadFailed(datasetName, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))).
			WithDetail("status", resp.StatusCode)
	}

	c.logger.Info("uploaded generations",
		zap.String("dataset", datasetName),
		zap.Int("records", count))
	return nil
}

func uploadFailed(datasetName string, err error) *services.DomainError {
	return services.NewDomainError(services.ErrorTypeExternal,
		fmt.Sprintf("upload of dataset %s failed", datasetName), err).
		WithDetail("dataset", datasetName)
}
