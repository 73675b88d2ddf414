package backend

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"loanportal/internal/models"
)

// GetJSON fetches an arbitrary JSON object, e.g. the admin endpoints.
func (c *Client) GetJSON(ctx context.Context, p *models.Principal, path string, query url.Values) (models.Entity, error) {
	resp, err := c.send(ctx, p, request{
		method:     http.MethodGet,
		path:       path,
		query:      query,
		collection: collectionOf(path),
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.body)
}

// PostJSON posts body (nil for none) and decodes the optional object reply.
func (c *Client) PostJSON(ctx context.Context, p *models.Principal, path string, body any) (models.Entity, error) {
	r := request{method: http.MethodPost, path: path, collection: collectionOf(path)}
	if body != nil {
		r.json = body
	}
	resp, err := c.send(ctx, p, r)
	if err != nil {
		return nil, err
	}
	return decodeOptionalObject(resp.body)
}

// ProxyResponse is a backend answer relayed as-is.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Proxy relays one call verbatim. Every status comes back in the response;
// only transport failures are errors.
func (c *Client) Proxy(ctx context.Context, p *models.Principal, method, path string, query url.Values, body []byte) (*ProxyResponse, error) {
	path = "/" + strings.TrimLeft(path, "/")
	r := request{method: method, path: path, query: query, collection: collectionOf(path), passthrough: true}
	if len(body) > 0 {
		r.body = bytes.NewReader(body)
		r.header = http.Header{"Content-Type": {"application/json"}}
	}
	resp, err := c.send(ctx, p, r)
	if err != nil {
		return nil, err
	}
	ct := resp.header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &ProxyResponse{StatusCode: resp.status, ContentType: ct, Body: resp.body}, nil
}
