package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IdentityClient resolves a session credential to a subject by asking the
// identity service. Nothing is cached; every call goes over the wire once.
type IdentityClient struct {
	baseUrl    string
	cookieName string
	httpClient *http.Client
}

func NewIdentityClient(baseUrl, cookieName string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *IdentityClient) Resolve(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"/get-user-details", nil)
	if err != nil {
		return "", fmt.Errorf("build request (identity): %w", err)
	}
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: credential})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get user details (identity): %w: %v", ErrIdentityUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body (identity): %w: %v", ErrIdentityUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, body)
	}

	var detailsResp UserDetailsResponse
	if err := json.Unmarshal(body, &detailsResp); err != nil {
		return "", fmt.Errorf("parse user details (identity): %w: %v", ErrIdentityUnreachable, err)
	}

	if detailsResp.UserDetails == nil || detailsResp.UserDetails.Sub == "" {
		return "", fmt.Errorf("parse user details (identity): %w", ErrInvalidIdentity)
	}

	return detailsResp.UserDetails.Sub, nil
}

// statusError classifies a non-200 reply. A refused credential, or a
// well-formed reply from the service, means the identity is invalid;
// outages and non-JSON bodies mean the service could not answer.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("get user details (identity): status %d: %w", status, ErrInvalidIdentity)
	case status >= http.StatusInternalServerError, !json.Valid(body):
		return fmt.Errorf("get user details (identity): status %d: %w", status, ErrIdentityUnreachable)
	default:
		return fmt.Errorf("get user details (identity): status %d: %w", status, ErrInvalidIdentity)
	}
}
