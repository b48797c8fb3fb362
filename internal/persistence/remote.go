package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// RemoteConfig holds configuration for the remote collections API.
type RemoteConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// RemoteCollections talks to a collections API that exposes
// GET/PUT /api/collections/:name with {"items": [...]} bodies.
type RemoteCollections struct {
	client  *resty.Client
	baseURL string
	token   string
}

// NewRemoteCollections creates a client for the remote collections API.
func NewRemoteCollections(cfg *RemoteConfig) *RemoteCollections {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &RemoteCollections{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

type collectionBody struct {
	Items json.RawMessage `json:"items"`
}

// Load fetches one collection. A collection the server does not know is empty.
func (r *RemoteCollections) Load(ctx context.Context, name string) ([]byte, error) {
	if r.token == "" {
		return nil, fmt.Errorf("load %s: %w: no session token", name, domain.ErrAuthRequired)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(r.token).
		Get(r.endpoint(name))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return []byte("[]"), nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, fmt.Errorf("load %s: %w: status %d", name, domain.ErrAuthRequired, resp.StatusCode())
	case resp.IsError():
		return nil, fmt.Errorf("load %s: unexpected status %d", name, resp.StatusCode())
	}

	var body collectionBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("load %s: decode response: %w", name, err)
	}
	if len(body.Items) == 0 {
		return []byte("[]"), nil
	}
	return body.Items, nil
}

// Save replaces one collection on the server.
func (r *RemoteCollections) Save(ctx context.Context, name string, data []byte) error {
	if r.token == "" {
		return fmt.Errorf("save %s: %w: no session token", name, domain.ErrAuthRequired)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(r.token).
		SetBody(collectionBody{Items: json.RawMessage(data)}).
		Put(r.endpoint(name))
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("save %s: %w: status %d", name, domain.ErrAuthRequired, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("save %s: unexpected status %d", name, resp.StatusCode())
	}
	return nil
}

func (r *RemoteCollections) endpoint(name string) string {
	return r.baseURL + "/api/collections/" + url.PathEscape(name)
}
