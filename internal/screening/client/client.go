// Package client calls the blockchain risk screening provider.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"onboard-gateway/internal/screening/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// Client is the HTTP client for the risk screening provider's entity API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a screening provider client.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("onboard-gateway/screening"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type entityResponse struct {
	Address                string `json:"address"`
	Risk                   string `json:"risk"`
	RiskReason             string `json:"riskReason"`
	AddressIdentifications []struct {
		Category    string `json:"category"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"addressIdentifications"`
	Exposures []struct {
		Category string  `json:"category"`
		Value    float64 `json:"value"`
	} `json:"exposures"`
}

// Assess registers the address with the provider and retrieves its risk
// assessment. Registration is idempotent on the provider side.
func (c *Client) Assess(ctx context.Context, address string) (*models.Assessment, error) {
	ctx, span := c.tracer.Start(ctx, "screening.Assess",
		trace.WithAttributes(attribute.String("screening.address", address)))
	assessment, err := c.assess(ctx, address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return assessment, err
}

func (c *Client) assess(ctx context.Context, address string) (*models.Assessment, error) {
	if err := c.register(ctx, address); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/risk/v2/entities/"+address, nil)
	if err != nil {
		return nil, fmt.Errorf("create entity request: %w", err)
	}
	req.Header.Set("Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "screening request timeout")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "screening request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read entity response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("screening provider returned status %d", resp.StatusCode))
	}

	var parsed entityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse entity response: %w", err)
	}

	assessment := &models.Assessment{
		Address: address,
		Risk:    models.RiskLevel(parsed.Risk),
	}
	for _, ident := range parsed.AddressIdentifications {
		if strings.Contains(strings.ToLower(ident.Category), "sanction") {
			assessment.Sanctioned = true
		}
	}
	for _, e := range parsed.Exposures {
		assessment.Exposures = append(assessment.Exposures, models.Exposure{
			Category: e.Category,
			Value:    e.Value,
		})
	}
	return assessment, nil
}

// register submits the address for assessment. A conflict status means the
// address is already known, which is fine.
func (c *Client) register(ctx context.Context, address string) error {
	payload, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return fmt.Errorf("marshal register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/risk/v2/entities", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create register request: %w", err)
	}
	req.Header.Set("Token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "screening register timeout")
		}
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "screening register failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return nil
	default:
		return dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("screening register returned status %d", resp.StatusCode))
	}
}
