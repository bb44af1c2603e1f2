package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// ListOpts selects one page of a listing
type ListOpts struct {
	Cursor string
	Limit  int
	Params url.Values // extra query parameters passed through unchanged
}

// ListResponse is one page returned by GET /v1/{collection}
type ListResponse struct {
	Items      []map[string]any `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

// CollectionClient provides CRUD operations for one collection
// Reference: internal/httpapi/items.go (server-side)
type CollectionClient struct {
	http     *HTTPClient
	basePath string // e.g., "/v1/todos"
}

// NewCollectionClient creates a client for /v1/{collection}
func NewCollectionClient(httpClient *HTTPClient, collection string) *CollectionClient {
	return &CollectionClient{
		http:     httpClient,
		basePath: fmt.Sprintf("/v1/%s", url.PathEscape(collection)),
	}
}

// List fetches one page of items
func (c *CollectionClient) List(ctx context.Context, opts ListOpts) (*ListResponse, error) {
	params := url.Values{}
	for k, v := range opts.Params {
		params[k] = v
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	reqURL := c.http.baseURL + c.basePath
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var listResp ListResponse
	if err := c.send(ctx, "list", "GET", reqURL, nil, "", &listResp, http.StatusOK); err != nil {
		return nil, err
	}
	if listResp.Items == nil {
		listResp.Items = []map[string]any{}
	}
	return &listResp, nil
}

// ListAll follows nextCursor until the listing is exhausted
func (c *CollectionClient) ListAll(ctx context.Context, opts ListOpts) ([]map[string]any, error) {
	var all []map[string]any
	seen := map[string]bool{}
	for {
		page, err := c.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.NextCursor == nil || *page.NextCursor == "" || len(page.Items) == 0 {
			break
		}
		if seen[*page.NextCursor] {
			return nil, fmt.Errorf("list: server repeated cursor %q", *page.NextCursor)
		}
		seen[*page.NextCursor] = true
		opts.Cursor = *page.NextCursor
	}
	if all == nil {
		all = []map[string]any{}
	}
	return all, nil
}

// Get retrieves a single item
// Returns ErrNotFound if the item doesn't exist
func (c *CollectionClient) Get(ctx context.Context, id any) (map[string]any, error) {
	var item map[string]any
	err := c.send(ctx, "get", "GET", c.itemURL(id), nil, resource.IndexKey(id), &item, http.StatusOK)
	return item, err
}

// Create creates a new item; the server assigns its id
func (c *CollectionClient) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	var item map[string]any
	err := c.send(ctx, "create", "POST", c.http.baseURL+c.basePath, payload, "", &item, http.StatusCreated, http.StatusOK)
	return item, err
}

// Update replaces an item's attributes (PUT)
func (c *CollectionClient) Update(ctx context.Context, id any, payload map[string]any) (map[string]any, error) {
	var item map[string]any
	err := c.send(ctx, "update", "PUT", c.itemURL(id), payload, resource.IndexKey(id), &item, http.StatusOK)
	return item, err
}

// Patch merges partial attributes into an item (PATCH)
func (c *CollectionClient) Patch(ctx context.Context, id any, partial map[string]any) (map[string]any, error) {
	var item map[string]any
	err := c.send(ctx, "patch", "PATCH", c.itemURL(id), partial, resource.IndexKey(id), &item, http.StatusOK)
	return item, err
}

// Delete removes an item
func (c *CollectionClient) Delete(ctx context.Context, id any) error {
	return c.send(ctx, "delete", "DELETE", c.itemURL(id), nil, resource.IndexKey(id), nil, http.StatusNoContent, http.StatusOK)
}

func (c *CollectionClient) itemURL(id any) string {
	return fmt.Sprintf("%s%s/%s", c.http.baseURL, c.basePath, url.PathEscape(resource.IndexKey(id)))
}

// send performs one request and decodes the response into out (when non-nil).
// A 404 becomes ErrNotFound when id is set; any status outside ok becomes
// ErrUnexpectedStatus.
func (c *CollectionClient) send(ctx context.Context, op, method, reqURL string, payload any, id string, out any, ok ...int) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && id != "" {
		return ErrNotFound{ID: id}
	}
	if !statusIn(resp.StatusCode, ok) {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ErrUnexpectedStatus{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func statusIn(code int, ok []int) bool {
	for _, s := range ok {
		if code == s {
			return true
		}
	}
	return false
}
