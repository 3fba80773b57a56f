// Package adminclient implements the cross-service admin check: the
// Attendance, Merit and Tabulation services call back into Auth's
// GET /admin/check rather than querying admin_users directly, per the
// design note in spec §9 ("choose one path and stick to it"). Auth
// itself never uses this client — it owns admin_users and queries it
// directly.
package adminclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the Auth service's admin-check endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client with the bounded timeout spec §5 recommends (10s)
// for outbound admin-check HTTP calls.
func New(authServiceURL string) *Client {
	return &Client{
		baseURL: authServiceURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type checkResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// IsAdmin asks Auth whether userID is an admin, forwarding the caller's
// own access token so Auth can verify it belongs to a real session. A
// failure to reach Auth surfaces as an error and a false result — never
// as a silent allow.
func (c *Client) IsAdmin(ctx context.Context, accessToken string, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/check?user_id="+userID, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("adminclient: admin-check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("adminclient: admin-check returned status %d", resp.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("adminclient: decode admin-check response: %w", err)
	}
	return body.IsAdmin, nil
}
