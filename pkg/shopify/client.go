package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

const accessTokenHeader = "X-Shopify-Access-Token"

var (
	errShopDomainRequired  = errors.New("shopify shop domain is required")
	errAccessTokenRequired = errors.New("shopify access token is required")
	errLoggerRequired      = errors.New("shopify logger is required")
)

// Client exposes the Shopify Admin REST primitives the sync engine consumes,
// with centralized auth, logging, and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	locationID  int64
	logger      *logger.Logger

	locationOnce sync.Once
	locationErr  error
}

// NewClient initializes the Shopify wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ShopifyConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ShopDomain) == "" {
		return nil, errShopDomainRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL(),
		accessToken: accessToken,
		locationID:  cfg.LocationID,
		logger:      logg,
	}

	logg.Info(ctx, "shopify client initialized")
	return c, nil
}

// CreateProduct creates the product with its variants on the channel.
func (c *Client) CreateProduct(ctx context.Context, payload ProductPayload) (*RemoteProduct, error) {
	c.log(ctx, "request", "create_product", map[string]any{"title": payload.Title, "variants": len(payload.Variants)})

	var out productEnvelope
	err := c.do(ctx, http.MethodPost, "/products.json", productRequest{Product: payload}, &out)
	if err != nil {
		c.log(ctx, "error", "create_product", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "create product")
	}

	c.log(ctx, "response", "create_product", map[string]any{"product_id": out.Product.ID})
	return &out.Product, nil
}

// UpdateProduct updates an existing product by remote id.
func (c *Client) UpdateProduct(ctx context.Context, productID int64, payload ProductPayload) (*RemoteProduct, error) {
	c.log(ctx, "request", "update_product", map[string]any{"product_id": productID})

	var out productEnvelope
	path := fmt.Sprintf("/products/%d.json", productID)
	err := c.do(ctx, http.MethodPut, path, productRequest{Product: payload}, &out)
	if err != nil {
		c.log(ctx, "error", "update_product", map[string]any{"product_id": productID, "error": err.Error()})
		return nil, c.mapError(err, "update product")
	}

	c.log(ctx, "response", "update_product", map[string]any{"product_id": out.Product.ID})
	return &out.Product, nil
}

// GetProduct fetches one product; a CodeNotFound error means it no longer
// exists on the channel.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*RemoteProduct, error) {
	var out productEnvelope
	path := fmt.Sprintf("/products/%d.json", productID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, c.mapError(err, "get product")
	}
	return &out.Product, nil
}

// ListProducts returns up to limit products from the channel.
func (c *Client) ListProducts(ctx context.Context, limit int) ([]RemoteProduct, error) {
	if limit <= 0 || limit > 250 {
		limit = 250
	}
	c.log(ctx, "request", "list_products", map[string]any{"limit": limit})

	var out productsEnvelope
	path := "/products.json?" + url.Values{"limit": []string{fmt.Sprint(limit)}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		c.log(ctx, "error", "list_products", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "list products")
	}

	c.log(ctx, "response", "list_products", map[string]any{"count": len(out.Products)})
	return out.Products, nil
}

// GetInventory returns the stock level tracked for the variant at the primary
// location. A nil result means the channel tracks no level for it.
func (c *Client) GetInventory(ctx context.Context, productID, variantID int64) (*RemoteInventory, error) {
	variant, err := c.getVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant.InventoryItemID == 0 {
		return nil, nil
	}

	locationID, err := c.PrimaryLocationID(ctx)
	if err != nil {
		return nil, err
	}

	var out inventoryLevelsEnvelope
	path := "/inventory_levels.json?" + url.Values{
		"inventory_item_ids": []string{fmt.Sprint(variant.InventoryItemID)},
		"location_ids":       []string{fmt.Sprint(locationID)},
	}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, c.mapError(err, "get inventory")
	}
	if len(out.InventoryLevels) == 0 {
		return nil, nil
	}

	available := 0
	if out.InventoryLevels[0].Available != nil {
		available = *out.InventoryLevels[0].Available
	}
	// The Admin REST inventory_levels resource only exposes available;
	// quantity mirrors it and reserved is unknown remotely.
	return &RemoteInventory{Quantity: available, Available: available, Reserved: 0}, nil
}

// SetInventory overwrites the available quantity for the variant at the
// primary location.
func (c *Client) SetInventory(ctx context.Context, variantID int64, available int) error {
	variant, err := c.getVariant(ctx, variantID)
	if err != nil {
		return err
	}
	if variant.InventoryItemID == 0 {
		return pkgerrors.New(pkgerrors.CodeStaleReference, fmt.Sprintf("variant %d has no inventory item", variantID))
	}

	locationID, err := c.PrimaryLocationID(ctx)
	if err != nil {
		return err
	}

	c.log(ctx, "request", "set_inventory", map[string]any{"variant_id": variantID, "available": available})

	var out inventoryLevelEnvelope
	body := setInventoryRequest{
		LocationID:      locationID,
		InventoryItemID: variant.InventoryItemID,
		Available:       available,
	}
	if err := c.do(ctx, http.MethodPost, "/inventory_levels/set.json", body, &out); err != nil {
		c.log(ctx, "error", "set_inventory", map[string]any{"variant_id": variantID, "error": err.Error()})
		return c.mapError(err, "set inventory")
	}

	c.log(ctx, "response", "set_inventory", map[string]any{"variant_id": variantID})
	return nil
}

// VariantExists reports whether the remote variant is still present.
func (c *Client) VariantExists(ctx context.Context, variantID int64) (bool, error) {
	_, err := c.getVariant(ctx, variantID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PrimaryLocationID resolves the location inventory operations target. A
// configured id wins; otherwise the first active location is looked up once
// and cached for the client lifetime.
func (c *Client) PrimaryLocationID(ctx context.Context) (int64, error) {
	if c.locationID != 0 {
		return c.locationID, nil
	}

	c.locationOnce.Do(func() {
		var out locationsEnvelope
		if err := c.do(ctx, http.MethodGet, "/locations.json", nil, &out); err != nil {
			c.locationErr = c.mapError(err, "list locations")
			return
		}
		for _, loc := range out.Locations {
			if loc.Active {
				c.locationID = loc.ID
				return
			}
		}
		c.locationErr = pkgerrors.New(pkgerrors.CodeDependency, "shop has no active location")
	})

	if c.locationErr != nil {
		return 0, c.locationErr
	}
	return c.locationID, nil
}

// Ping verifies the shop is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Shop struct {
			ID int64 `json:"id"`
		} `json:"shop"`
	}
	if err := c.do(ctx, http.MethodGet, "/shop.json", nil, &out); err != nil {
		return c.mapError(err, "ping")
	}
	return nil
}

func (c *Client) getVariant(ctx context.Context, variantID int64) (*RemoteVariant, error) {
	var out variantEnvelope
	path := fmt.Sprintf("/variants/%d.json", variantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, c.mapError(err, "get variant")
	}
	return &out.Variant, nil
}

// statusError carries the HTTP status until mapError converts it to a domain code.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("shopify responded %d", e.status)
	}
	return fmt.Sprintf("shopify responded %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{status: resp.StatusCode, body: errorBodyPreview(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func errorBodyPreview(raw []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Errors != nil {
		return fmt.Sprint(parsed.Errors)
	}
	preview := strings.TrimSpace(string(raw))
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return preview
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("shopify %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("shopify %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "password"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return pkgerrors.Wrap(domainCodeForStatus(statusErr.status), err, fmt.Sprintf("shopify %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeRemoteChannel, err, fmt.Sprintf("shopify %s failed", op))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeRemoteChannel
	}
}
