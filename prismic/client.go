// Package prismic is a small read-only client for the Prismic REST API v2.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/content"
)

// MaxPageSize is the largest page the API serves.
const MaxPageSize = 100

// Client queries one Prismic repository. It is safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	refTTL   time.Duration

	mu         sync.Mutex
	ref        string
	refFetched time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent with every request.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRefTTL sets how long the master ref is reused before it is looked up again.
func WithRefTTL(d time.Duration) Option {
	return func(c *Client) { c.refTTL = d }
}

// New creates a client for an API endpoint such as
// https://my-repo.cdn.prismic.io/api/v2.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		refTTL:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchResponse struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	NextPage     *string       `json:"next_page"`
	TotalResults int           `json:"total_results_size"`
	Results      []rawDocument `json:"results"`
}

type rawDocument struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	FirstPublicationDate *Timestamp      `json:"first_publication_date"`
	LastPublicationDate  *Timestamp      `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

func (d rawDocument) document() content.Document {
	return content.Document{
		Summary: content.Summary{
			ID:                   d.ID,
			UID:                  d.UID,
			Type:                 d.Type,
			FirstPublicationDate: d.FirstPublicationDate.Ptr(),
		},
		LastPublicationDate: d.LastPublicationDate.Ptr(),
		Data:                d.Data,
	}
}

// Query implements content.Source with an `at(document.type, ...)` predicate.
func (c *Client) Query(ctx context.Context, q content.Query) (content.Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	resp, err := c.search(ctx, At("document.type", q.Type), page, size)
	if err != nil {
		return content.Page{}, err
	}
	out := content.Page{
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Results:    make([]content.Summary, 0, len(resp.Results)),
	}
	if resp.NextPage != nil && resp.Page < resp.TotalPages {
		out.NextPage = resp.Page + 1
	}
	for _, d := range resp.Results {
		out.Results = append(out.Results, d.document().Summary)
	}
	return out, nil
}

// GetByUID implements content.Source.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (content.Document, error) {
	resp, err := c.search(ctx, At("my."+docType+".uid", uid), 1, 1)
	if err != nil {
		return content.Document{}, err
	}
	if len(resp.Results) == 0 {
		return content.Document{}, fmt.Errorf("prismic: %s %q: %w", docType, uid, content.ErrNotFound)
	}
	return resp.Results[0].document(), nil
}

func (c *Client) search(ctx context.Context, predicate string, page, pageSize int) (searchResponse, error) {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return searchResponse{}, err
	}
	params := url.Values{}
	params.Set("ref", ref)
	params.Set("q", "["+predicate+"]")
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	var resp searchResponse
	if err := c.getJSON(ctx, c.endpoint+"/documents/search", params, &resp); err != nil {
		return searchResponse{}, err
	}
	return resp, nil
}

// masterRef returns the current master ref, reusing it for refTTL.
func (c *Client) masterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.ref != "" && time.Since(c.refFetched) < c.refTTL {
		ref := c.ref
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	var info apiInfo
	if err := c.getJSON(ctx, c.endpoint, url.Values{}, &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.ref = r.Ref
			c.refFetched = time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("prismic: no master ref: %w", content.ErrUnavailable)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	if c.token != "" {
		params.Set("access_token", c.token)
	}
	u := endpoint
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("prismic: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prismic: %w: %w", content.ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("prismic: %s: status %d: %w", endpoint, res.StatusCode, content.ErrUnavailable)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("prismic: decode response: %w: %w", content.ErrUnavailable, err)
	}
	return nil
}

// At builds an `at` predicate.
func At(path, value string) string {
	return "[at(" + path + ", " + strconv.Quote(value) + ")]"
}
