package directory

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
	"github.com/innover-platform/identity-core/pkg/identity"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/innover-platform/identity-core/pkg/directory"

// maxResponseSize bounds a SCIM response body read. User records are
// small; anything larger is a misbehaving endpoint.
const maxResponseSize = 1 << 20

// HTTPClient abstracts the HTTP client used for SCIM requests, allowing
// tests to inject a custom transport. The standard [http.Client]
// satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches user records from the directory's SCIM 2.0 endpoint.
// It implements [identity.DirectoryLookup].
//
// A Client is safe for concurrent use. It performs no caching; wrap it
// with [NewCachedLookup] for request-path use.
type Client struct {
	baseURL string
	config  Config
	client  HTTPClient
	tracer  trace.Tracer
}

var _ identity.DirectoryLookup = (*Client)(nil)

// NewClient creates a directory client. It validates the configuration
// and builds the HTTPS transport; no connection is made until the first
// lookup.
//
// Error codes returned:
//   - [iderr.CodeValidation]: invalid configuration
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeValidation,
			"directory: invalid configuration")
	}

	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		}
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port),
		config:  cfg,
		client:  client,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// LookupUser fetches the directory record for the given subject id from
// the SCIM Users endpoint. LookupUser implements
// [identity.DirectoryLookup].
//
// Error codes returned:
//   - [iderr.CodeNotFoundUser]: no user with that id
//   - [iderr.CodeAuthentication]: admin credentials rejected
//   - [iderr.CodeUnavailableDependency]: directory unreachable or
//     answered with an unexpected status
func (c *Client) LookupUser(ctx context.Context, id string) (*identity.DirectoryRecord, error) {
	ctx, span := c.tracer.Start(ctx, "directory.LookupUser",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("directory.subject_id", id),
		),
	)
	defer span.End()

	record, err := c.lookupUser(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("directory.username", record.Username))
	return record, nil
}

func (c *Client) lookupUser(ctx context.Context, id string) (*identity.DirectoryRecord, error) {
	if id == "" {
		return nil, iderr.New(iderr.CodeValidation, "directory: subject id is empty")
	}

	lookupURL := c.baseURL + "/scim2/Users/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeInternal,
			"directory: failed to create lookup request")
	}
	req.SetBasicAuth(c.config.AdminUser, c.config.AdminPass.Value())
	req.Header.Set("Accept", "application/scim+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"directory: lookup request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, iderr.Newf(iderr.CodeNotFoundUser,
			"directory: no user with id %q", id)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, iderr.New(iderr.CodeAuthentication,
			"directory: admin credentials rejected")
	default:
		return nil, iderr.Newf(iderr.CodeUnavailableDependency,
			"directory: lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"directory: failed to read lookup response")
	}

	var user scimUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"directory: lookup response is not valid SCIM JSON")
	}

	return user.toRecord(), nil
}

// scimUser mirrors the subset of a SCIM 2.0 user resource the
// normalizer consumes. SCIM multi-valued attributes may arrive as plain
// strings or as {value/display} objects; both forms appear in the wild
// and both are accepted.
type scimUser struct {
	UserName string          `json:"userName"`
	Emails   []scimMultiItem `json:"emails"`
	Roles    []scimMultiItem `json:"roles"`
	Name     struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"name"`
}

// scimMultiItem is one entry of a SCIM multi-valued attribute.
type scimMultiItem struct {
	Value   string
	Display string
}

// UnmarshalJSON accepts either a bare string or a {value, display}
// object.
func (s *scimMultiItem) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Value = str
		return nil
	}
	var obj struct {
		Value   string `json:"value"`
		Display string `json:"display"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Value = obj.Value
	s.Display = obj.Display
	return nil
}

// displayOrValue returns the human-readable display name if present,
// else the value. Used for roles, where display carries the role name.
func (s scimMultiItem) displayOrValue() string {
	if s.Display != "" {
		return s.Display
	}
	return s.Value
}

// valueOrDisplay returns the value if present, else the display name.
// Used for emails, where the address lives in value.
func (s scimMultiItem) valueOrDisplay() string {
	if s.Value != "" {
		return s.Value
	}
	return s.Display
}

func (u *scimUser) toRecord() *identity.DirectoryRecord {
	record := &identity.DirectoryRecord{
		Username:   u.UserName,
		GivenName:  u.Name.GivenName,
		FamilyName: u.Name.FamilyName,
		Roles:      []string{},
	}
	if len(u.Emails) > 0 {
		record.Email = u.Emails[0].valueOrDisplay()
	}
	for _, role := range u.Roles {
		if r := role.displayOrValue(); r != "" {
			record.Roles = append(record.Roles, r)
		}
	}
	return record
}
