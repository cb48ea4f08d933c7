package configstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Config holds the connection settings for the store's REST API. OrgID is
// the pre-provisioned organization every workspace is created under; the
// platform does not create store organizations at runtime.
type Config struct {
	BaseURL string
	OrgID   string
	Token   string

	// WorkspaceDeleteSupported mirrors the capability of the deployed store.
	// Leave false unless the store actually exposes workspace deletion.
	WorkspaceDeleteSupported bool

	Timeout time.Duration
}

// HTTPClient implements Client against a Superposition-style REST API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *HTTPClient) CreateWorkspace(ctx context.Context, name string) (string, error) {
	body := map[string]any{
		"workspace_name":        name,
		"workspace_status":      "ENABLED",
		"workspace_strict_mode": false,
	}
	var out struct {
		WorkspaceName string `json:"workspace_name"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces", body, &out); err != nil {
		return "", fmt.Errorf("configstore: create workspace %q: %w", name, err)
	}
	return out.WorkspaceName, nil
}

func (c *HTTPClient) DeleteWorkspace(ctx context.Context, name string) error {
	if !c.cfg.WorkspaceDeleteSupported {
		return fmt.Errorf("configstore: delete workspace %q: %w", name, ErrUnsupported)
	}
	if err := c.do(ctx, http.MethodDelete, "/workspaces/"+name, nil, nil); err != nil {
		return fmt.Errorf("configstore: delete workspace %q: %w", name, err)
	}
	return nil
}

func (c *HTTPClient) SupportsWorkspaceDelete() bool {
	return c.cfg.WorkspaceDeleteSupported
}

func (c *HTTPClient) CreateDefaultConfig(ctx context.Context, workspace, key string, value any, schema map[string]any) error {
	body := map[string]any{
		"key":    key,
		"value":  value,
		"schema": schema,
	}
	path := "/workspaces/" + workspace + "/default-config"
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("configstore: create default config %q in %s: %w", key, workspace, err)
	}
	return nil
}

func (c *HTTPClient) CreateExperiment(ctx context.Context, workspace, name string, variants []Variant) (string, error) {
	body := map[string]any{
		"name":     name,
		"context":  map[string]any{},
		"variants": variants,
	}
	var out struct {
		ID string `json:"id"`
	}
	path := "/workspaces/" + workspace + "/experiments"
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", fmt.Errorf("configstore: create experiment %q in %s: %w", name, workspace, err)
	}
	return out.ID, nil
}

func (c *HTTPClient) RampExperiment(ctx context.Context, workspace, experimentID string, trafficPercent int) error {
	body := map[string]any{
		"traffic_percentage": trafficPercent,
	}
	path := "/workspaces/" + workspace + "/experiments/" + experimentID + "/ramp"
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("configstore: ramp experiment %s to %d%%: %w", experimentID, trafficPercent, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	}

	url := c.cfg.BaseURL + "/organisations/" + c.cfg.OrgID + path
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", strconv.Itoa(resp.StatusCode), msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
