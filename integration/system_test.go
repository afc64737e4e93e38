//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type cartState struct {
	Items []struct {
		Product  map[string]any `json:"product"`
		Quantity int            `json:"quantity"`
	} `json:"items"`
	ItemCount int `json:"itemCount"`
}

func TestSystem_E2E_CartSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var listing struct {
		Count    int              `json:"count"`
		Products []map[string]any `json:"products"`
	}
	doJSON(t, http.MethodGet, baseURL+"/catalog/products", nil, &listing, 200)
	if listing.Count == 0 {
		t.Fatalf("expected non-empty catalog")
	}
	for _, p := range listing.Products {
		if inStock, _ := p["inStock"].(bool); !inStock {
			t.Fatalf("out of stock product listed: %#v", p)
		}
	}

	pid, _ := listing.Products[0]["id"].(string)
	if pid == "" {
		t.Fatalf("product id missing in response: %#v", listing.Products[0])
	}

	var sess struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/session", nil, &sess, 201)
	if sess.Token == "" {
		t.Fatalf("empty session token")
	}

	var st cartState
	doJSONAuth(t, http.MethodPost, baseURL+"/cart/items", sess.Token, map[string]any{"productId": pid, "quantity": 2}, &st, 200)
	if st.ItemCount != 2 {
		t.Fatalf("itemCount=%d want=2", st.ItemCount)
	}

	if os.Getenv("E2E_RESTART") == "1" {
		restartService(t, ctx, getenv("E2E_SERVICE", "storefront"))
		waitReady(t, ctx, baseURL+"/readyz")

		doJSONAuth(t, http.MethodGet, baseURL+"/cart", sess.Token, nil, &st, 200)
		if st.ItemCount != 2 || len(st.Items) != 1 {
			t.Fatalf("cart lost across restart: %+v", st)
		}
	}

	doJSONAuth(t, http.MethodPut, baseURL+"/cart/items/"+pid, sess.Token, map[string]any{"quantity": 0}, &st, 200)
	if st.ItemCount != 0 {
		t.Fatalf("update to 0 should empty the cart, itemCount=%d", st.ItemCount)
	}
}

func TestSystem_E2E_OrderLookupValidation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	doJSON(t, http.MethodGet, baseURL+"/orders?mobile=", nil, nil, 400)
	doJSON(t, http.MethodGet, baseURL+"/orders?mobile=12345", nil, nil, 400)
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

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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
