package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"FoodMart/internal/admin"
	"FoodMart/internal/catalog"
	"FoodMart/internal/store"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	ts    *httptest.Server
	token string
}

func newCatalogTS(t *testing.T) fixture {
	t.Helper()

	st := store.NewMemStore(store.WithBcryptCost(bcrypt.MinCost))
	if err := store.Seed(context.Background(), st, store.SeedOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	jwt := admin.NewTokenMaker(secret, time.Hour)
	guard := &admin.Server{Log: zap.NewNop(), Store: st, JWT: jwt}

	s := &catalog.Server{
		Log:          zap.NewNop(),
		Store:        st,
		RequireAdmin: guard.RequireAdmin,
		MaxBodyBytes: 4096,
	}

	r := chi.NewRouter()
	s.Register(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	tok, err := jwt.New(1, store.DefaultAdminEmail)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return fixture{ts: ts, token: tok}
}

func doJSON(t *testing.T, method, url string, body any, token string) (*http.Response, []byte) {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
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

func listProducts(t *testing.T, base string, q url.Values) []store.Product {
	t.Helper()

	u := base + "/products"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, raw := doJSON(t, http.MethodGet, u, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d body=%s", resp.StatusCode, raw)
	}

	var out []store.Product
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode list: %v body=%s", err, raw)
	}
	return out
}

func TestList_Filters(t *testing.T) {
	f := newCatalogTS(t)

	cases := []struct {
		name string
		q    url.Values
		want int
	}{
		{"everything", nil, 6},
		{"all category", url.Values{"category": {"all"}}, 6},
		{"vegetables", url.Values{"category": {"vegetables"}}, 2},
		{"unknown category", url.Values{"category": {"fruit"}}, 0},
		{"search upper case", url.Values{"search": {"GẠO"}}, 1},
		{"search description", url.Values{"search": {"hữu cơ"}}, 2},
		{"category then search", url.Values{"category": {"vegetables"}, "search": {"cà"}}, 1},
		{"category then search miss", url.Values{"category": {"meat"}, "search": {"cà chua"}}, 0},
		{"empty search", url.Values{"search": {""}}, 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := listProducts(t, f.ts.URL, tc.q)
			if len(got) != tc.want {
				t.Fatalf("got %d products want %d: %+v", len(got), tc.want, got)
			}
		})
	}
}

func TestGet(t *testing.T) {
	f := newCatalogTS(t)

	resp, raw := doJSON(t, http.MethodGet, f.ts.URL+"/products/5", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
	var p store.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != 5 || p.Name != "Gạo ST25" || p.Price != 85000 {
		t.Fatalf("product=%+v", p)
	}

	resp, _ = doJSON(t, http.MethodGet, f.ts.URL+"/products/404", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, f.ts.URL+"/products/abc", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", resp.StatusCode)
	}
}

func TestCategories(t *testing.T) {
	f := newCatalogTS(t)

	resp, raw := doJSON(t, http.MethodGet, f.ts.URL+"/categories", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var cats []catalog.Category
	if err := json.Unmarshal(raw, &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 5 || cats[0].ID != "vegetables" {
		t.Fatalf("categories=%+v", cats)
	}
}

func TestAdminCRUD(t *testing.T) {
	f := newCatalogTS(t)

	body := map[string]any{
		"name":     "Muối biển",
		"category": "dry",
		"price":    12000,
		"weight":   "1kg",
		"image":    "https://example.com/salt.jpg",
	}

	var created store.Product
	{
		resp, raw := doJSON(t, http.MethodPost, f.ts.URL+"/products", body, f.token)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", resp.StatusCode, raw)
		}
		if err := json.Unmarshal(raw, &created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if created.ID != 7 || created.Rating != store.DefaultRating {
			t.Fatalf("created=%+v", created)
		}
	}

	{
		resp, raw := doJSON(t, http.MethodPut, f.ts.URL+"/products/7", map[string]any{
			"id":    99,
			"price": 15000,
			"tag":   "sale",
		}, f.token)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("update status=%d body=%s", resp.StatusCode, raw)
		}
		var got store.Product
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != 7 || got.Price != 15000 || got.Tag != "sale" || got.Name != "Muối biển" {
			t.Fatalf("updated=%+v", got)
		}
	}

	{
		resp, _ := doJSON(t, http.MethodPut, f.ts.URL+"/products/404", map[string]any{"price": 1}, f.token)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("update missing status=%d", resp.StatusCode)
		}
	}

	{
		resp, _ := doJSON(t, http.MethodDelete, f.ts.URL+"/products/7", nil, f.token)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete status=%d", resp.StatusCode)
		}
		resp, _ = doJSON(t, http.MethodDelete, f.ts.URL+"/products/7", nil, f.token)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("second delete status=%d", resp.StatusCode)
		}
	}

	if got := listProducts(t, f.ts.URL, nil); len(got) != 6 {
		t.Fatalf("after delete len=%d", len(got))
	}
}

func TestCreate_Rejects(t *testing.T) {
	f := newCatalogTS(t)

	valid := func() map[string]any {
		return map[string]any{
			"name":     "Bơ",
			"category": "dairy",
			"price":    30000,
			"weight":   "200g",
			"image":    "https://example.com/bo.jpg",
		}
	}

	cases := []struct {
		name   string
		mutate func(map[string]any)
		token  string
		want   int
	}{
		{"anonymous", func(map[string]any) {}, "", http.StatusUnauthorized},
		{"missing price", func(m map[string]any) { delete(m, "price") }, f.token, http.StatusBadRequest},
		{"negative price", func(m map[string]any) { m["price"] = -1 }, f.token, http.StatusBadRequest},
		{"bad category", func(m map[string]any) { m["category"] = "fruit" }, f.token, http.StatusBadRequest},
		{"bad tag", func(m map[string]any) { m["tag"] = "hot" }, f.token, http.StatusBadRequest},
		{"rating out of range", func(m map[string]any) { m["rating"] = "7" }, f.token, http.StatusBadRequest},
		{"unknown field", func(m map[string]any) { m["color"] = "red" }, f.token, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := valid()
			tc.mutate(body)
			resp, raw := doJSON(t, http.MethodPost, f.ts.URL+"/products", body, tc.token)
			if resp.StatusCode != tc.want {
				t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, tc.want, raw)
			}
		})
	}

	if got := listProducts(t, f.ts.URL, nil); len(got) != 6 {
		t.Fatalf("rejected creates changed the catalog: len=%d", len(got))
	}
}
