package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalambet/prepd/internal/config"
	"github.com/kalambet/prepd/internal/performance"
)

// errNotSaved means the server computed the new record but could not
// persist it. The returned summary reflects the unsaved record.
var errNotSaved = errors.New("record was computed but not saved")

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token, err := config.GetAPIToken(config.NewSecretStore())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prepd-cli/"+version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is prepd running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *apiClient) patch(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// summary performs a request whose success body is a performance summary.
// A 503 carrying the unsaved record yields that record's summary together
// with errNotSaved.
func (c *apiClient) summary(ctx context.Context, method, path string, body any) (performance.Summary, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return performance.Summary{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return performance.Summary{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		var partial struct {
			Record *performance.Record `json:"record"`
		}
		if json.Unmarshal(data, &partial) == nil && partial.Record != nil {
			return performance.Summarize(partial.Record), errNotSaved
		}
	}
	if resp.StatusCode >= 400 {
		return performance.Summary{}, newRequestError(resp.StatusCode, data)
	}

	var s performance.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return performance.Summary{}, fmt.Errorf("decoding summary: %w", err)
	}
	return s, nil
}

// requestError is a non-2xx response, decoded from the server's
// {"error":{"message","type"}} envelope when present.
type requestError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *requestError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func newRequestError(status int, body []byte) *requestError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return &requestError{StatusCode: status, Type: envelope.Error.Type, Message: envelope.Error.Message}
	}
	return &requestError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return newRequestError(resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
