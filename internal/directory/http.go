package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config holds the connection settings for the admin REST API. The client
// authenticates with a service-account via the OAuth client-credentials
// grant, the same way the dashboard backend does.
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// HTTPClient implements Client against a Keycloak-style admin REST API.
type HTTPClient struct {
	cfg  Config
	http *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewHTTPClient builds a directory client. The zero Timeout defaults to 10s;
// every directory call is a network round trip and must not hang a saga.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) CreateGroup(ctx context.Context, name string) (string, error) {
	body := map[string]string{"name": name}
	id, err := c.create(ctx, c.adminPath("/groups"), body)
	if err != nil {
		return "", fmt.Errorf("directory: create group %q: %w", name, err)
	}
	return id, nil
}

func (c *HTTPClient) CreateChildGroup(ctx context.Context, parentID, name string) (string, error) {
	body := map[string]string{"name": name}
	id, err := c.create(ctx, c.adminPath("/groups/"+parentID+"/children"), body)
	if err != nil {
		return "", fmt.Errorf("directory: create child group %q under %s: %w", name, parentID, err)
	}
	return id, nil
}

func (c *HTTPClient) DeleteGroup(ctx context.Context, groupID string) error {
	if err := c.do(ctx, http.MethodDelete, c.adminPath("/groups/"+groupID), nil, nil); err != nil {
		return fmt.Errorf("directory: delete group %s: %w", groupID, err)
	}
	return nil
}

func (c *HTTPClient) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	path := c.adminPath("/users/" + userID + "/groups/" + groupID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("directory: add user %s to group %s: %w", userID, groupID, err)
	}
	return nil
}

func (c *HTTPClient) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	path := c.adminPath("/users/" + userID + "/groups/" + groupID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("directory: remove user %s from group %s: %w", userID, groupID, err)
	}
	return nil
}

func (c *HTTPClient) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var users []User
	path := c.adminPath("/users") + "?exact=true&username=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, fmt.Errorf("directory: find user %q: %w", username, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("directory: find user %q: %w", username, ErrNotFound)
	}
	return &users[0], nil
}

func (c *HTTPClient) FindGroupByName(ctx context.Context, name string) (*Group, error) {
	var groups []Group
	path := c.adminPath("/groups") + "?exact=true&search=" + url.QueryEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &groups); err != nil {
		return nil, fmt.Errorf("directory: find group %q: %w", name, err)
	}
	for _, g := range groups {
		if g.Name == name {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("directory: find group %q: %w", name, ErrNotFound)
}

func (c *HTTPClient) ListChildGroups(ctx context.Context, groupID string) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, c.adminPath("/groups/"+groupID+"/children"), nil, &groups); err != nil {
		return nil, fmt.Errorf("directory: list children of %s: %w", groupID, err)
	}
	return groups, nil
}

func (c *HTTPClient) ListUserGroups(ctx context.Context, userID string) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, c.adminPath("/users/"+userID+"/groups"), nil, &groups); err != nil {
		return nil, fmt.Errorf("directory: list groups of user %s: %w", userID, err)
	}
	return groups, nil
}

func (c *HTTPClient) ListGroupMembers(ctx context.Context, groupID string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, c.adminPath("/groups/"+groupID+"/members"), nil, &users); err != nil {
		return nil, fmt.Errorf("directory: list members of %s: %w", groupID, err)
	}
	return users, nil
}

func (c *HTTPClient) adminPath(p string) string {
	return c.cfg.BaseURL + "/admin/realms/" + c.cfg.Realm + p
}

// create POSTs a resource and extracts the new id from the Location header,
// which is how the admin API reports ids for groups.
func (c *HTTPClient) create(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("no Location header in create response")
	}
	return loc[strings.LastIndex(loc, "/")+1:], nil
}

// do issues an authenticated request and decodes a JSON response into out
// when out is non-nil. A 404 maps to ErrNotFound.
func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	token, err := c.token(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.http.Do(req)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// token returns a cached service-account access token, refreshing it through
// the client-credentials grant shortly before expiry.
func (c *HTTPClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	endpoint := c.cfg.BaseURL + "/realms/" + c.cfg.Realm + "/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("directory: token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory: acquire token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("directory: acquire token: status %d: %s", resp.StatusCode, msg)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("directory: decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	// Refresh 30s early so in-flight requests never carry a stale token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
	return c.accessToken, nil
}
