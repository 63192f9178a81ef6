//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

func TestSystem_E2E_Checkout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	sid := fmt.Sprintf("e2e_%d_%d", time.Now().Unix(), rand.Intn(100000))

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/api/products", sid, nil, &products, 200)
	if len(products) == 0 {
		t.Fatalf("expected seeded products")
	}

	pid, _ := products[0]["id"].(float64)
	if pid == 0 {
		t.Fatalf("product id missing in response: %#v", products[0])
	}

	var line map[string]any
	doJSON(t, http.MethodPost, baseURL+"/api/cart", sid, map[string]any{"productId": pid, "quantity": 1}, &line, 200)
	doJSON(t, http.MethodPost, baseURL+"/api/cart", sid, map[string]any{"productId": pid, "quantity": 1}, &line, 200)
	if q, _ := line["quantity"].(float64); q != 2 {
		t.Fatalf("cart line not merged: %#v", line)
	}

	var created map[string]any
	doJSON(t, http.MethodPost, baseURL+"/api/orders", sid, nil, &created, 201)

	orderID, _ := created["id"].(string)
	if orderID == "" {
		t.Fatalf("order id missing: %#v", created)
	}

	var cart []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/api/cart", sid, nil, &cart, 200)
	if len(cart) != 0 {
		t.Fatalf("cart not cleared after checkout: %#v", cart)
	}

	var got map[string]any
	doJSON(t, http.MethodGet, baseURL+"/api/orders/"+orderID, sid, nil, &got, 200)

	if os.Getenv("E2E_RESTART") == "1" {
		restartStorefront(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
		doJSON(t, http.MethodGet, baseURL+"/api/orders/"+orderID, sid, nil, &got, 200)
	}
}

func TestSystem_E2E_AdminLogin(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	doJSON(t, http.MethodPost, baseURL+"/api/admin/login", "", map[string]any{
		"email":    getenv("E2E_ADMIN_EMAIL", "admin@foodmart.com"),
		"password": getenv("E2E_ADMIN_PASSWORD", "admin123"),
	}, &login, 200)
	if login.AccessToken == "" {
		t.Fatalf("empty accessToken")
	}

	var orders []map[string]any
	doJSONAuth(t, http.MethodGet, baseURL+"/api/admin/orders", login.AccessToken, nil, &orders, 200)
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url, sid string, body any, out any, want int) {
	t.Helper()
	do(t, method, url, map[string]string{"X-Session-Id": sid}, body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()
	do(t, method, url, map[string]string{"Authorization": "Bearer " + token}, body, out, want)
}

func do(t *testing.T, method, url string, headers map[string]string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
