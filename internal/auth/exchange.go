package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunelink/internal/provider"
	"tunelink/pkg/oauth"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// ExchangeRequest is the coordinator's request to the exchange proxy. The
// verifier field is populated from the coordinator's own pending storage,
// never from a bridge message.
type ExchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

// ExchangeError is a non-2xx response from the exchange proxy, carrying
// the propagated upstream status and a best-effort extracted message.
type ExchangeError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("token exchange failed with status %d", e.Status)
}

// Exchanger performs the server-side token exchange for an authorization
// code.
type Exchanger interface {
	Exchange(ctx context.Context, cfg *provider.Config, req ExchangeRequest) (*oauth.TokenResult, error)
}

// ProxyExchanger exchanges codes through the tunelink exchange proxy over
// HTTP. The proxy holds the provider secrets; this client never sees them.
type ProxyExchanger struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxyExchanger creates an exchanger hitting the proxy at baseURL.
// A nil client gets a default with a bounded timeout.
func NewProxyExchanger(baseURL string, httpClient *http.Client) *ProxyExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &ProxyExchanger{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Exchange implements Exchanger. It POSTs the code (and verifier, for PKCE
// providers) as JSON and decodes the normalized token result.
func (p *ProxyExchanger) Exchange(ctx context.Context, cfg *provider.Config, req ExchangeRequest) (*oauth.TokenResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exchange request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+cfg.TokenExchangePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExchangeError{
			Status:  resp.StatusCode,
			Message: extractErrorMessage(respBody),
		}
	}

	var result oauth.TokenResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse exchange response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("exchange response missing access token")
	}

	return &result, nil
}

// extractErrorMessage pulls a human-readable message out of an error body:
// the JSON "error" field when present, otherwise the raw body.
func extractErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
