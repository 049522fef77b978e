package keystone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keystonectl/keystonectl/pkg/catalog"
)

const (
	servicesPath  = "/OS-KSADM/services"
	endpointsPath = "/endpoints"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is carried into the
	// error message.
	maxErrorBody = 512
)

// Config holds the connection parameters for a Keystone v2.0 admin endpoint.
type Config struct {
	// AuthURL is the admin API base URL, e.g.
	// "https://identity.example.org:35357/v2.0".
	AuthURL string

	// Token is the service token sent as X-Auth-Token.
	Token string

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the transport. Nil means a default client with
	// the configured timeout.
	HTTPClient *http.Client
}

// Client talks to the Keystone v2.0 admin API. It implements
// catalog.IdentityClient: list and create only, no update, no delete, and no
// retries.
//
// Errors carry the remote classification from the catalog taxonomy. An HTTP
// 404 from the API is a remote error like any other non-2xx status; the
// taxonomy's not-found kind means "zero lookup matches" and is produced by
// the reconciler's lookup layer, never here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given admin endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("auth URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.AuthURL); err != nil {
		return nil, fmt.Errorf("invalid auth URL %q: %w", cfg.AuthURL, err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.AuthURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}, nil
}

// wire types for the v2.0 admin API

type wireService struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type wireEndpoint struct {
	ID          string `json:"id,omitempty"`
	ServiceID   string `json:"service_id"`
	Region      string `json:"region"`
	PublicURL   string `json:"publicurl"`
	InternalURL string `json:"internalurl"`
	AdminURL    string `json:"adminurl"`
}

// ListServices returns every service registration in the catalog.
func (c *Client) ListServices(ctx context.Context) ([]catalog.Service, error) {
	var body struct {
		Services []wireService `json:"OS-KSADM:services"`
	}
	if err := c.do(ctx, http.MethodGet, servicesPath, nil, &body); err != nil {
		return nil, err
	}

	services := make([]catalog.Service, 0, len(body.Services))
	for _, svc := range body.Services {
		services = append(services, catalog.Service{
			ID:          svc.ID,
			Name:        svc.Name,
			Type:        svc.Type,
			Description: svc.Description,
		})
	}
	return services, nil
}

// ListEndpoints returns every endpoint in the catalog.
func (c *Client) ListEndpoints(ctx context.Context) ([]catalog.Endpoint, error) {
	var body struct {
		Endpoints []wireEndpoint `json:"endpoints"`
	}
	if err := c.do(ctx, http.MethodGet, endpointsPath, nil, &body); err != nil {
		return nil, err
	}

	endpoints := make([]catalog.Endpoint, 0, len(body.Endpoints))
	for _, ep := range body.Endpoints {
		endpoints = append(endpoints, catalog.Endpoint{
			ID:          ep.ID,
			ServiceID:   ep.ServiceID,
			Region:      ep.Region,
			PublicURL:   ep.PublicURL,
			InternalURL: ep.InternalURL,
			AdminURL:    ep.AdminURL,
		})
	}
	return endpoints, nil
}

// CreateService registers a new service and returns it with the assigned id.
func (c *Client) CreateService(ctx context.Context, name, serviceType, description string) (*catalog.Service, error) {
	request := map[string]wireService{
		"OS-KSADM:service": {
			Name:        name,
			Type:        serviceType,
			Description: description,
		},
	}
	var body struct {
		Service wireService `json:"OS-KSADM:service"`
	}
	if err := c.do(ctx, http.MethodPost, servicesPath, request, &body); err != nil {
		return nil, err
	}

	return &catalog.Service{
		ID:          body.Service.ID,
		Name:        body.Service.Name,
		Type:        body.Service.Type,
		Description: body.Service.Description,
	}, nil
}

// CreateEndpoint registers a new endpoint bound to ep.ServiceID and returns
// it with the assigned id.
func (c *Client) CreateEndpoint(ctx context.Context, ep catalog.Endpoint) (*catalog.Endpoint, error) {
	request := map[string]wireEndpoint{
		"endpoint": {
			ServiceID:   ep.ServiceID,
			Region:      ep.Region,
			PublicURL:   ep.PublicURL,
			InternalURL: ep.InternalURL,
			AdminURL:    ep.AdminURL,
		},
	}
	var body struct {
		Endpoint wireEndpoint `json:"endpoint"`
	}
	if err := c.do(ctx, http.MethodPost, endpointsPath, request, &body); err != nil {
		return nil, err
	}

	return &catalog.Endpoint{
		ID:          body.Endpoint.ID,
		ServiceID:   body.Endpoint.ServiceID,
		Region:      body.Endpoint.Region,
		PublicURL:   body.Endpoint.PublicURL,
		InternalURL: body.Endpoint.InternalURL,
		AdminURL:    body.Endpoint.AdminURL,
	}, nil
}

// do performs one API request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, request, out interface{}) error {
	var reqBody io.Reader
	if request != nil {
		encoded, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.NewRemoteError(
			fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return catalog.NewRemoteError(
			fmt.Sprintf("%s %s returned %d: %s",
				method, path, resp.StatusCode, strings.TrimSpace(string(excerpt))), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return catalog.NewRemoteError(
				fmt.Sprintf("%s %s returned an unreadable body", method, path), err)
		}
	}
	return nil
}
