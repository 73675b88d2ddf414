// Package backend talks to the loan management API. It is the only place
// that knows endpoint paths, response envelopes and status conventions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loanportal/internal/config"
	"loanportal/internal/metrics"
	"loanportal/internal/models"
)

const maxBodyBytes = 16 << 20

type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	legacy         bool
	log            *slog.Logger
	metrics        *metrics.Metrics
}

func NewClient(cfg config.BackendConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIPrefix, "/"),
		httpClient:     &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		legacy:         cfg.LegacyEndpoints,
		log:            logger.With("component", "backend"),
		metrics:        m,
	}
}

// SetHTTPClient swaps the transport, mainly for tests.
func (c *Client) SetHTTPClient(h *http.Client) { c.httpClient = h }

type request struct {
	method     string
	path       string
	query      url.Values
	body       io.Reader
	json       any
	header     http.Header
	collection string
	// passthrough hands every status back to the caller unmapped.
	passthrough bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs one call and maps the status. Callers without a deadline
// get the configured request timeout.
func (c *Client) send(ctx context.Context, p *models.Principal, r request) (*response, error) {
	if _, ok := ctx.Deadline(); !ok && c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	body := r.body
	if r.json != nil {
		buf, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if p != nil && p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	collection := r.collection
	if collection == "" {
		collection = "other"
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(r.method, collection, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.metrics.ObserveBackend(r.method, collection, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}

	out := &response{status: resp.StatusCode, header: resp.Header, body: raw}
	if r.passthrough {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path,
			&StatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	return out, nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// decodeObject decodes a single JSON object.
func decodeObject(body []byte) (models.Entity, error) {
	var v any
	if err := decode(body, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: want object, got %T", ErrMalformedResponse, v)
	}
	return models.Entity(obj), nil
}

func (c *Client) getObject(ctx context.Context, p *models.Principal, path string) (models.Entity, error) {
	resp, err := c.send(ctx, p, request{method: http.MethodGet, path: path, collection: collectionOf(path)})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.body)
}

// collectionOf picks the first path segment as the metrics label.
func collectionOf(path string) string {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	return seg
}
