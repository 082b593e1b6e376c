package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

const snapshotPageSize = 100

// Fetcher loads a full Snapshot from the HTTP API on behalf of one
// authenticated subject. Customers receive their own orders, staff all of
// them.
type Fetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// Fetch reads the catalog and walks every page of orders.
func (f *Fetcher) Fetch(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	var items struct {
		Data []domain.MenuItem `json:"data"`
	}
	if err := f.get(ctx, "/v1/catalog/items", nil, &items); err != nil {
		return Snapshot{}, err
	}
	snap.Items = items.Data

	var categories struct {
		Data []domain.Category `json:"data"`
	}
	if err := f.get(ctx, "/v1/catalog/categories", nil, &categories); err != nil {
		return Snapshot{}, err
	}
	snap.Categories = categories.Data

	for page := 1; ; page++ {
		var res struct {
			Data       []domain.Order `json:"data"`
			Pagination struct {
				TotalPages int `json:"total_pages"`
			} `json:"pagination"`
		}
		q := url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(snapshotPageSize)}}
		if err := f.get(ctx, "/v1/orders", q, &res); err != nil {
			return Snapshot{}, err
		}
		snap.Orders = append(snap.Orders, res.Data...)
		if page >= res.Pagination.TotalPages || len(res.Data) == 0 {
			break
		}
	}
	return snap, nil
}

func (f *Fetcher) get(ctx context.Context, path string, q url.Values, out any) error {
	u := strings.TrimRight(f.BaseURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+f.Token)
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("get %s: status %d %s %s", path, resp.StatusCode, body.Code, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
