package flip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/logger"
)

const (
	brandsListPath      = "/shop/admin/brands/onboarding/list/v2"
	productMappingsPath = "/shop/admin/product-mappings/v1"
	variantsPathFmt     = "/shop/admin/product-mappings/%s/variants/v1"
	detailedMappingFmt  = "/shop/admin/product-mappings/%s/v1"
	acceptMappingPath   = "/shop/brand/items-mapping/accept/v1"
)

// ErrUnauthorized marks a 401 from the API so callers can refresh the
// credential and retry.
var ErrUnauthorized = errors.New("unauthorized")

// HTTPClient lets tests swap the transport. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies a bearer token per request. *auth.TokenCache
// satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the Flip admin API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	toolsToken string
	pageSize   int
	httpClient HTTPClient
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, tokens TokenSource, logger *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		tokens:     tokens,
		toolsToken: cfg.FlipinatorTools,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger,
	}
}

// ListBrands pages through the brand onboarding listing for the given
// filter. Best effort: a failed page logs and returns what was accumulated.
func (c *Client) ListBrands(ctx context.Context, filter BrandFilter) []Brand {
	return fetchAllPages[Brand](ctx, c, brandsListPath, filter.payload(), "brands", http.StatusCreated)
}

// ListProductMappings pages through the product mappings of one brand.
func (c *Client) ListProductMappings(ctx context.Context, brandID string) []ProductMapping {
	base := map[string]interface{}{"itemBrandId": brandID}
	return fetchAllPages[ProductMapping](ctx, c, productMappingsPath, base, "product mappings", http.StatusCreated)
}

// ListVariants pages through the variants of one product mapping (the flat
// listing form of the endpoint).
func (c *Client) ListVariants(ctx context.Context, mappingID string) []Variant {
	path := fmt.Sprintf(variantsPathFmt, url.PathEscape(mappingID))
	return fetchAllPages[Variant](ctx, c, path, nil, "variants", http.StatusOK, http.StatusCreated)
}

// DetailedVariants fetches variants through the detailed mapping endpoint,
// which nests them under data.variants.data. Best effort like the paged
// listings.
func (c *Client) DetailedVariants(ctx context.Context, mappingID, brandID string) []Variant {
	path := fmt.Sprintf(detailedMappingFmt, url.PathEscape(mappingID))
	var resp detailedMappingResponse
	err := c.doJSON(ctx, http.MethodGet, path+"?itemBrandId="+url.QueryEscape(brandID), nil, &resp, http.StatusOK)
	if err != nil {
		c.logger.Error("detailed mapping fetch failed for %s: %v", mappingID, err)
		return nil
	}
	return resp.Data.Variants.Data
}

// AcceptItemMappings submits one batch of item mapping ids for approval.
// A 401 is reported as ErrUnauthorized so the caller can refresh and retry.
func (c *Client) AcceptItemMappings(ctx context.Context, itemIDs []string) (*AcceptResponse, error) {
	payload := map[string]interface{}{"itemIds": itemIDs}
	var resp AcceptResponse
	if err := c.doJSON(ctx, http.MethodPost, acceptMappingPath, payload, &resp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// fetchAllPages accumulates a paged POST listing starting at page 1. It
// stops on an empty page or a short page, and treats any request failure as
// end of data, returning the records gathered so far.
func fetchAllPages[T any](ctx context.Context, c *Client, path string, base map[string]interface{}, what string, okStatuses ...int) []T {
	var all []T
	for page := 1; ; page++ {
		payload := make(map[string]interface{}, len(base)+2)
		for k, v := range base {
			payload[k] = v
		}
		payload["page"] = page
		payload["limit"] = c.pageSize

		var resp listResponse[T]
		if err := c.doJSON(ctx, http.MethodPost, path, payload, &resp, okStatuses...); err != nil {
			c.logger.Error("%s fetch failed on page %d: %v", what, page, err)
			return all
		}
		if len(resp.Data) == 0 {
			c.logger.Debug("no more %s on page %d", what, page)
			return all
		}

		all = append(all, resp.Data...)
		c.logger.Debug("fetched %d %s from page %d", len(resp.Data), what, page)

		// A short page is the last one.
		if len(resp.Data) < c.pageSize {
			return all
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}, okStatuses ...int) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.toolsToken != "" {
		req.Header.Set("x-flipinator-tools", c.toolsToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if !statusOK(resp.StatusCode, okStatuses) {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusOK(code int, okStatuses []int) bool {
	for _, s := range okStatuses {
		if code == s {
			return true
		}
	}
	return false
}
