package client

import (
	"bytes"
	"content-storefront/internal/dto"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StorefrontClient talks to a running storefront API as a visitor would.
type StorefrontClient interface {
	Consume(ctx context.Context, req *dto.ConsumeRequest) (*dto.ConsumeResponse, error)
}

type storefrontClientImpl struct {
	httpClient  *http.Client
	baseURL     string
	bearerToken string
}

func NewStorefrontClient(baseURL, bearerToken string, timeout time.Duration) StorefrontClient {
	return &storefrontClientImpl{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
	}
}

func (c *storefrontClientImpl) Consume(ctx context.Context, req *dto.ConsumeRequest) (*dto.ConsumeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal consume request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/access/consume", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storefront consume returned %d: %s", resp.StatusCode, string(raw))
	}

	var out dto.ConsumeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode consume response: %w", err)
	}

	return &out, nil
}
