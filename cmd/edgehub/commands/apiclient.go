package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgehub/edgehub/internal/config"
)

// apiClient talks to the hub's management API with the stored session.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
	cfg     *config.CLI
}

// newAPIClient loads CLI config and resolves the server URL. The
// --server flag overrides the stored one.
func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	cfg, err := config.LoadCLI()
	if err != nil {
		return nil, err
	}

	baseURL := cfg.ServerURL
	if flagURL, _ := cmd.Flags().GetString("server"); flagURL != "" {
		baseURL = flagURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no server URL configured; pass --server or run 'edgehub login'")
	}

	token := ""
	if cfg.Session != nil {
		token = cfg.Session.Token
	}

	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 150 * time.Second},
		cfg:     cfg,
	}, nil
}

// do performs a JSON request and decodes the response into out when the
// status matches. API errors surface with the server's message.
func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not authenticated; run 'edgehub login'")
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
