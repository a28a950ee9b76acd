// Package fal calls fal.ai's synchronous inference endpoint for image models.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/domain"
)

// Client generates images with a fal.ai model such as fal-ai/flux/schnell.
type Client struct {
	http     *http.Client
	endpoint string
	key      string
}

type input struct {
	Prompt            string `json:"prompt"`
	ImageSize         string `json:"image_size"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	NumImages         int    `json:"num_images"`
	Style             string `json:"style,omitempty"`
}

type output struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type apiError struct {
	Detail json.RawMessage `json:"detail"`
}

func NewClient(cfg *config.Config) *Client {
	c := &Client{
		http:     &http.Client{Timeout: cfg.UpstreamTimeout},
		endpoint: strings.TrimRight(cfg.FalBaseURL, "/") + "/" + strings.Trim(cfg.FalModel, "/"),
	}
	if cfg.FalConfigured() {
		c.key = cfg.FalKeyID + ":" + cfg.FalKeySecret
	}
	return c
}

// Configured reports whether both key id and secret were supplied.
func (c *Client) Configured() bool { return c.key != "" }

// Generate requests one image for req and returns its URL.
func (c *Client) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("fal: %w", domain.ErrNotConfigured)
	}
	req = req.WithDefaults()
	body, err := json.Marshal(input{
		Prompt:            req.Prompt,
		ImageSize:         req.ImageSize,
		NumInferenceSteps: req.NumSteps,
		NumImages:         1,
		Style:             req.Style,
	})
	if err != nil {
		return "", fmt.Errorf("fal: marshal input: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fal: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+c.key)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("fal: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var out output
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fal: decode response: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if len(out.Images) == 0 || out.Images[0].URL == "" {
		return "", fmt.Errorf("fal: invalid response from image generation service: %w", domain.ErrUpstreamUnavailable)
	}
	return out.Images[0].URL, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var e apiError
	detail := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && len(e.Detail) > 0 {
		detail = string(e.Detail)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("fal: %w", domain.ErrUpstreamUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("fal: %w", domain.ErrUpstreamRateLimited)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("fal: %s: %w", detail, domain.ErrBadRequest)
	default:
		return fmt.Errorf("fal: status %d: %s: %w", resp.StatusCode, detail, domain.ErrUpstreamUnavailable)
	}
}
