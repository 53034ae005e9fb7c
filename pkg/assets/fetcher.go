package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fetcher retrieves the bytes behind a URI
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// StoreFetcher fetches http(s) URIs over the network and everything else
// from a Store, stripping the store's URL prefix when present.
type StoreFetcher struct {
	store     Store
	urlPrefix string
	client    *http.Client
}

// NewStoreFetcher creates a fetcher over store. urlPrefix is the path local
// asset URLs are served under ("/assets"); it may be empty.
func NewStoreFetcher(store Store, urlPrefix string, client *http.Client) *StoreFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &StoreFetcher{store: store, urlPrefix: strings.TrimSuffix(urlPrefix, "/"), client: client}
}

// Fetch opens uri for reading
func (f *StoreFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http.Get(%q): %w", uri, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	name := uri
	if f.urlPrefix != "" {
		name = strings.TrimPrefix(name, f.urlPrefix+"/")
	}
	return f.store.Open(ctx, strings.TrimPrefix(name, "/"))
}
