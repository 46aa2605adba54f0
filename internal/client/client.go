// Package client speaks the backoffice REST API: envelope decoding, error
// classification and the typed per-resource call surface the console uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

// DefaultTimeout bounds every call unless the caller supplies a client.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read. Anything larger is a
// malfunctioning server, not a payload.
const maxBodyBytes = 1 << 20

// TokenSource supplies the bearer token for each request, empty when logged
// out.
type TokenSource func() string

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "http://localhost:9999". The API
	// prefix is appended internally.
	BaseURL string
	// HTTPClient overrides the default 10s-timeout client.
	HTTPClient *http.Client
	// Tokens supplies the bearer token; nil means anonymous.
	Tokens TokenSource
	// Handler receives every classified failure for side effects. Optional.
	Handler *errdefs.Handler
	Log     zerolog.Logger
}

// Client is the API entry point. Resource groups hang off it so call sites
// read client.Users.List(...).
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	handler *errdefs.Handler
	log     zerolog.Logger

	Base       *BaseService
	Users      *UsersService
	Roles      *RolesService
	Menus      *MenusService
	Apis       *ApisService
	Depts      *DeptsService
	AuditLogs  *AuditLogsService
	Products   *ProductsService
	Categories *CategoriesService
	Uploads    *UploadsService
}

// New builds a Client for the server at opts.BaseURL.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
			// Redirects are never part of the API contract; surface them
			// as-is instead of following.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		tokens:  opts.Tokens,
		handler: opts.Handler,
		log:     opts.Log.With().Str("component", "client").Logger(),
	}
	c.Base = &BaseService{c}
	c.Users = &UsersService{c}
	c.Roles = &RolesService{c}
	c.Menus = &MenusService{c}
	c.Apis = &ApisService{c}
	c.Depts = &DeptsService{c}
	c.AuditLogs = &AuditLogsService{c}
	c.Products = &ProductsService{c}
	c.Categories = &CategoriesService{c}
	c.Uploads = &UploadsService{c}
	return c
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string { return c.baseURL }

// Page carries list pagination totals.
type Page struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// envelope mirrors the server's uniform response body; paging totals appear
// as siblings on list responses.
type envelope struct {
	Code     int             `json:"code"`
	Msg      string          `json:"msg"`
	Data     json.RawMessage `json:"data"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

func (c *Client) getPage(ctx context.Context, path string, query url.Values, out any) (Page, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (c *Client) del(ctx context.Context, path string, query url.Values, body, out any) error {
	_, err := c.do(ctx, http.MethodDelete, path, query, body, out)
	return err
}

// do executes one API exchange. Any failure, transport or envelope, comes
// back as a classified *errdefs.Error after passing through the handler
// registry.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (Page, error) {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Page{}, c.dispatch(errdefs.New(errdefs.KindSystem, 500, "encode request: "+err.Error()))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return Page{}, c.dispatch(errdefs.New(errdefs.KindSystem, 500, "build request: "+err.Error()))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// download fetches a raw, non-envelope payload and streams the body into w.
// The file name suggested by Content-Disposition is returned when present.
func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) (string, error) {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", c.dispatch(errdefs.New(errdefs.KindSystem, 500, "build request: "+err.Error()))
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.dispatch(errdefs.Classify(nil, nil, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return "", c.dispatch(errdefs.Classify(resp, raw, nil))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", c.dispatch(errdefs.Network("read download body", err))
	}

	var name string
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name = params["filename"]
		}
	}
	return name, nil
}

// send executes a prepared request and decodes the envelope into out.
func (c *Client) send(req *http.Request, out any) (Page, error) {
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", req.Method).Str("url", req.URL.Path).Msg("transport failure")
		return Page{}, c.dispatch(errdefs.Classify(nil, nil, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, c.dispatch(errdefs.Network("read response body", err))
	}
	c.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if e := errdefs.Classify(resp, raw, nil); e != nil {
		return Page{}, c.dispatch(e)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Page{}, c.dispatch(errdefs.System("malformed response envelope: " + err.Error()))
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Page{}, c.dispatch(errdefs.System(fmt.Sprintf("decode %s response: %v", req.URL.Path, err)))
		}
	}
	return Page{Total: env.Total, Page: env.Page, PageSize: env.PageSize}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if tok := c.tokens(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// dispatch feeds the failure through the handler registry and returns it.
func (c *Client) dispatch(e *errdefs.Error) error {
	if e == nil {
		return nil
	}
	if c.handler != nil {
		return c.handler.Handle(e, nil)
	}
	return e
}
