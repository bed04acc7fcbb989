package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// Lifecycle states and actions used by the publisher API.
const (
	LifecycleCreated   = "CREATED"
	LifecyclePublished = "PUBLISHED"

	lifecycleActionPublish = "Publish"
)

// APIDefinition describes a REST API to register on the gateway. Name,
// Context, and BackendURL are required; everything else gets the
// platform defaults from [newAPIPayload].
type APIDefinition struct {
	Name       string
	Context    string
	Version    string
	BackendURL string
	SandboxURL string
	Provider   string
	Tags       []string

	// Operations overrides the default catch-all CRUD operation set.
	Operations []APIOperation

	// SecurityScheme overrides the default oauth2 scheme list.
	SecurityScheme []string
}

// APIOperation is one exposed resource of a published API.
type APIOperation struct {
	Target           string `json:"target"`
	Verb             string `json:"verb"`
	AuthType         string `json:"authType"`
	ThrottlingPolicy string `json:"throttlingPolicy"`
}

// APISummary is one entry of the publisher's API list.
type APISummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Context         string `json:"context"`
	Version         string `json:"version"`
	LifeCycleStatus string `json:"lifeCycleStatus"`
}

// defaultOperations is the catch-all operation set applied when an
// APIDefinition names none.
func defaultOperations() []APIOperation {
	verbs := []string{"GET", "POST", "PUT", "DELETE", "PATCH"}
	ops := make([]APIOperation, 0, len(verbs))
	for _, verb := range verbs {
		ops = append(ops, APIOperation{
			Target:           "/*",
			Verb:             verb,
			AuthType:         "Application & Application User",
			ThrottlingPolicy: "Unlimited",
		})
	}
	return ops
}

// newAPIPayload expands an APIDefinition into the publisher API's
// request document with the platform's standard settings.
func newAPIPayload(def APIDefinition) map[string]any {
	version := def.Version
	if version == "" {
		version = "1.0.0"
	}
	provider := def.Provider
	if provider == "" {
		provider = "admin"
	}
	sandboxURL := def.SandboxURL
	if sandboxURL == "" {
		sandboxURL = def.BackendURL
	}
	operations := def.Operations
	if len(operations) == 0 {
		operations = defaultOperations()
	}
	securityScheme := def.SecurityScheme
	if len(securityScheme) == 0 {
		securityScheme = []string{"oauth2", "oauth_basic_auth_api_key_mandatory"}
	}

	return map[string]any{
		"name":            def.Name,
		"context":         def.Context,
		"version":         version,
		"provider":        provider,
		"lifeCycleStatus": LifecycleCreated,
		"type":            "HTTP",
		"endpointConfig": map[string]any{
			"endpoint_type":        "http",
			"production_endpoints": map[string]any{"url": def.BackendURL},
			"sandbox_endpoints":    map[string]any{"url": sandboxURL},
		},
		"operations":          operations,
		"policies":            []string{"Unlimited"},
		"visibility":          "PUBLIC",
		"securityScheme":      securityScheme,
		"gatewayEnvironments": []string{"Production and Sandbox"},
		"transport":           []string{"http", "https"},
		"tags":                def.Tags,
		"corsConfiguration": map[string]any{
			"corsConfigurationEnabled":      true,
			"accessControlAllowOrigins":     []string{"*"},
			"accessControlAllowCredentials": false,
			"accessControlAllowHeaders": []string{
				"authorization", "Access-Control-Allow-Origin", "Content-Type", "SOAPAction",
			},
			"accessControlAllowMethods": []string{
				"GET", "PUT", "POST", "DELETE", "PATCH", "OPTIONS",
			},
		},
	}
}

// CreateAPI registers a REST API on the gateway in the CREATED state
// and returns its id.
//
// Error codes returned:
//   - [iderr.CodeValidation]: definition missing required fields
//   - [iderr.CodeConflictAlreadyExists]: an API with the same name and
//     version already exists
func (c *Client) CreateAPI(ctx context.Context, def APIDefinition) (string, error) {
	if def.Name == "" || def.Context == "" || def.BackendURL == "" {
		return "", iderr.New(iderr.CodeValidation,
			"gateway: API definition requires name, context, and backend URL")
	}

	var created APISummary
	if err := c.do(ctx, http.MethodPost, c.publisherAPI()+"/apis", newAPIPayload(def), &created); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "gateway: created API",
		"name", def.Name,
		"api_id", created.ID,
	)
	return created.ID, nil
}

// ListAPIs returns all registered APIs.
func (c *Client) ListAPIs(ctx context.Context) ([]APISummary, error) {
	var result struct {
		List []APISummary `json:"list"`
	}
	if err := c.getJSON(ctx, c.publisherAPI()+"/apis", &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// PublishAPI moves the API with the given id to the PUBLISHED lifecycle
// state.
func (c *Client) PublishAPI(ctx context.Context, apiID string) error {
	params := url.Values{
		"apiId":  {apiID},
		"action": {lifecycleActionPublish},
	}
	if err := c.do(ctx, http.MethodPost,
		buildQuery(c.publisherAPI()+"/apis/change-lifecycle", params), nil, nil); err != nil {
		return err
	}

	slog.InfoContext(ctx, "gateway: published API", "api_id", apiID)
	return nil
}

// DeleteAPI removes the API with the given id.
func (c *Client) DeleteAPI(ctx context.Context, apiID string) error {
	return c.do(ctx, http.MethodDelete, c.publisherAPI()+"/apis/"+apiID, nil, nil)
}

// EnsureAPI registers and publishes the API described by def,
// idempotently: an existing API of the same name and version is reused,
// and publishing is skipped when it is already published. Returns the
// API id.
func (c *Client) EnsureAPI(ctx context.Context, def APIDefinition) (string, error) {
	version := def.Version
	if version == "" {
		version = "1.0.0"
	}

	apis, err := c.ListAPIs(ctx)
	if err != nil {
		return "", err
	}

	var existing *APISummary
	for i := range apis {
		if apis[i].Name == def.Name && apis[i].Version == version {
			existing = &apis[i]
			break
		}
	}

	apiID := ""
	published := false
	if existing != nil {
		apiID = existing.ID
		published = existing.LifeCycleStatus == LifecyclePublished
	} else {
		apiID, err = c.CreateAPI(ctx, def)
		if err != nil {
			return "", err
		}
	}

	if !published {
		if err := c.PublishAPI(ctx, apiID); err != nil {
			return "", err
		}
	}
	return apiID, nil
}
