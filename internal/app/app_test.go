package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"FoodMart/internal/admin"
	"FoodMart/internal/app"
	"FoodMart/internal/order"
	"FoodMart/internal/store"
)

const (
	jwtSecret    = "0123456789abcdef0123456789abcdef"
	metricsToken = "scrape-me"
)

func newStorefrontTS(t *testing.T) *httptest.Server {
	t.Helper()

	st := store.NewMemStore(store.WithBcryptCost(bcrypt.MinCost))
	if err := store.Seed(context.Background(), st, store.SeedOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := app.NewHandler(
		app.Deps{
			Store:            st,
			Orders:           order.NewMemStore(),
			JWT:              admin.NewTokenMaker(jwtSecret, time.Hour),
			LoginLimitPerMin: 10,
			SessionMaxAge:    time.Hour,
			MaxBodyBytes:     1 << 16,
		},
		app.HTTPDeps{
			Log:            zap.NewNop(),
			Service:        "storefront",
			Registry:       prometheus.NewRegistry(),
			MetricsEnabled: true,
			MetricsToken:   metricsToken,
		},
	)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestStorefront_ShopperFlow(t *testing.T) {
	ts := newStorefrontTS(t)
	c := newClient(t)

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/products?category=vegetables", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list status=%d body=%s", resp.StatusCode, raw)
		}
		var products []store.Product
		if err := json.Unmarshal(raw, &products); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(products) != 2 {
			t.Fatalf("vegetables=%d", len(products))
		}
	}

	// The cookie jar carries the session minted by the first request.
	for _, body := range []map[string]any{
		{"productId": 2, "quantity": 1},
		{"productId": 2, "quantity": 2},
		{"productId": 4},
	} {
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/cart", body, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add status=%d body=%s", resp.StatusCode, raw)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/cart", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("cart status=%d", resp.StatusCode)
		}
		var items []store.CartItem
		if err := json.Unmarshal(raw, &items); err != nil {
			t.Fatalf("decode cart: %v", err)
		}
		if len(items) != 2 || items[0].Quantity != 3 || items[1].Quantity != 1 {
			t.Fatalf("cart=%+v", items)
		}
	}

	var placed order.Order
	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/orders", nil, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("checkout status=%d body=%s", resp.StatusCode, raw)
		}
		if err := json.Unmarshal(raw, &placed); err != nil {
			t.Fatalf("decode order: %v", err)
		}
		if placed.Total != 3*180000+45000 {
			t.Fatalf("total=%d", placed.Total)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/cart", nil, nil)
		if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(raw)) != "[]" {
			t.Fatalf("cart after checkout status=%d body=%s", resp.StatusCode, raw)
		}
	}

	{
		other := newClient(t)
		resp, _ := doJSON(t, other, http.MethodGet, ts.URL+"/api/orders/"+placed.ID, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("foreign order status=%d", resp.StatusCode)
		}
	}
}

func TestStorefront_AdminFlow(t *testing.T) {
	ts := newStorefrontTS(t)
	c := newClient(t)

	{
		resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/api/products", map[string]any{
			"name": "Muối", "category": "dry", "price": 5000, "weight": "1kg", "image": "https://example.com/m.jpg",
		}, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("anonymous create status=%d", resp.StatusCode)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/admin/login", map[string]any{
			"email":    store.DefaultAdminEmail,
			"password": store.DefaultAdminPassword,
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login status=%d body=%s", resp.StatusCode, raw)
		}
	}

	// The admin cookie in the jar authorizes the next calls.
	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/api/products", map[string]any{
			"name": "Muối", "category": "dry", "price": 5000, "weight": "1kg", "image": "https://example.com/m.jpg",
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", resp.StatusCode, raw)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/api/admin/orders", nil, nil)
		if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(raw)) != "[]" {
			t.Fatalf("admin orders status=%d body=%s", resp.StatusCode, raw)
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/api/admin/logout", nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("logout status=%d", resp.StatusCode)
		}
		resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/api/admin/orders", nil, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("after logout status=%d", resp.StatusCode)
		}
	}
}

func TestStorefront_Probes(t *testing.T) {
	ts := newStorefrontTS(t)
	c := newClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, c, http.MethodGet, ts.URL+path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("metrics without token status=%d", resp.StatusCode)
		}
	}

	_, _ = doJSON(t, c, http.MethodPost, ts.URL+"/api/cart", map[string]any{"productId": 1}, nil)

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer " + metricsToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	body := string(raw)
	if !strings.Contains(body, `storefront_events_total{event="cart_add",service="storefront"} 1`) {
		t.Fatalf("cart_add event missing from metrics:\n%s", body)
	}
	if !strings.Contains(body, `path="/api/cart`) {
		t.Fatalf("route label missing from metrics:\n%s", body)
	}
}
