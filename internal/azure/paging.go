package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxPages bounds a single listing traversal. The provider guarantees the
// chain is finite, but a misbehaving endpoint must not keep us walking forever.
const maxPages = 1000

// Page is the wire shape of one listing page: an item array plus an optional
// absolute URL of the next page.
type Page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

// ExtractFunc converts one raw page item into the caller's item type.
type ExtractFunc[T any] func(raw json.RawMessage) (T, error)

// FilterFunc decides whether a decoded item is kept. A nil filter keeps all.
type FilterFunc[T any] func(item T) bool

// CollectPages walks a nextLink-chained listing starting at seedURL and
// appends every decoded item passing filter to the returned slice, in page
// order. The walk stops when a page omits nextLink and fails with
// ErrTooManyPages past the page cap.
func CollectPages[T any](ctx context.Context, client *http.Client, seedURL string, header http.Header, extract ExtractFunc[T], filter FilterFunc[T]) ([]T, error) {
	var out []T

	url := seedURL
	for pages := 0; url != ""; pages++ {
		if pages >= maxPages {
			return nil, ErrTooManyPages
		}

		page, err := fetchPage(ctx, client, url, header)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Value {
			item, err := extract(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to decode page item: %w", err)
			}
			if filter == nil || filter(item) {
				out = append(out, item)
			}
		}

		url = page.NextLink
	}

	return out, nil
}

// fetchPage GETs one listing page with the given headers.
func fetchPage(ctx context.Context, client *http.Client, url string, header http.Header) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, body)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode listing page: %w", err)
	}

	return &page, nil
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
