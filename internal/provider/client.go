// Package provider calls the identity verification provider's API to enrich
// applicants with profile data. All calls are best-effort: callers fall back
// to event-supplied fields when enrichment fails.
package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// Profile is the enriched identity data for one applicant.
type Profile struct {
	Name     string
	Document string
	Email    string
	Phone    string
	Kind     models.Kind
}

// Client is the signed HTTP client for the verification provider API.
type Client struct {
	baseURL    string
	appToken   string
	secretKey  []byte
	httpClient *http.Client

	// now is swappable in tests so signatures are reproducible.
	now func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithClock sets the timestamp source used for request signatures.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a signed provider API client.
func NewClient(baseURL, appToken, secretKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appToken:  appToken,
		secretKey: []byte(secretKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type applicantResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Info  struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		IDDocs    []struct {
			IDDocType string `json:"idDocType"`
			Number    string `json:"number"`
		} `json:"idDocs"`
	} `json:"info"`
	CompanyInfo struct {
		CompanyName        string `json:"companyName"`
		RegistrationNumber string `json:"registrationNumber"`
	} `json:"companyInfo"`
}

// FetchApplicant retrieves the applicant's profile from the provider.
func (c *Client) FetchApplicant(ctx context.Context, providerApplicantID string) (*Profile, error) {
	path := "/resources/applicants/" + providerApplicantID + "/one"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create applicant request: %w", err)
	}
	c.signRequest(req, path, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "provider request timeout")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "provider request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read applicant response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found at provider")
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, dErrors.New(dErrors.CodeAuthenticationFailed, "provider rejected request signature")
	default:
		return nil, dErrors.New(dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	var parsed applicantResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse applicant response: %w", err)
	}

	return profileFromResponse(parsed), nil
}

func profileFromResponse(resp applicantResponse) *Profile {
	p := &Profile{
		Email: resp.Email,
		Phone: resp.Phone,
		Kind:  models.KindIndividual,
	}

	if resp.CompanyInfo.CompanyName != "" {
		p.Kind = models.KindCompany
		p.Name = resp.CompanyInfo.CompanyName
		p.Document = resp.CompanyInfo.RegistrationNumber
		return p
	}

	p.Name = strings.TrimSpace(resp.Info.FirstName + " " + resp.Info.LastName)
	for _, doc := range resp.Info.IDDocs {
		if doc.Number != "" {
			p.Document = doc.Number
			break
		}
	}
	return p
}

// signRequest attaches the provider's access signature headers. The signature
// covers ts + METHOD + path + body with the shared secret key.
func (c *Client) signRequest(req *http.Request, path string, body []byte) {
	ts := strconv.FormatInt(c.now().Unix(), 10)

	mac := hmac.New(sha256.New, c.secretKey)
	mac.Write([]byte(ts))
	mac.Write([]byte(req.Method))
	mac.Write([]byte(path))
	mac.Write(body)

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-App-Token", c.appToken)
	req.Header.Set("X-App-Access-Sig", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("X-App-Access-Ts", ts)
}
