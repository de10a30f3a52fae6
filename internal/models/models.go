// Package models provides model listing and switching from the API's
// models endpoint.
package models

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Info represents a single model from the /models endpoint.
type Info struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type listResponse struct {
	Data []Info `json:"data"`
}

// Manager fetches and caches the list of available models.
type Manager struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu     sync.Mutex
	cached []Info
}

// NewManager creates a Manager for the given API endpoint. baseURL
// includes the version prefix, matching the chat client.
func NewManager(baseURL, apiKey string) *Manager {
	return &Manager{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

// List returns the available models, fetching from the API if not cached.
func (m *Manager) List() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached, nil
	}

	req, err := http.NewRequest(http.MethodGet, m.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	m.cached = result.Data
	return m.cached, nil
}

// Invalidate clears the cached model list.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
}

// Has returns true if the given model ID is in the list of available models.
func (m *Manager) Has(modelID string) (bool, error) {
	list, err := m.List()
	if err != nil {
		return false, err
	}
	for _, model := range list {
		if model.ID == modelID {
			return true, nil
		}
	}
	return false, nil
}
