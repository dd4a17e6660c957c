//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var waffle *productResponse
	for i := range products {
		if products[i].Name == "Waffle with Berries" {
			waffle = &products[i]
			break
		}
	}

	if waffle == nil {
		t.Fatal("product 'Waffle with Berries' not found")
	}
	if waffle.Price != 500 {
		t.Errorf("price: got %v, want 500", waffle.Price)
	}
	if waffle.Stock != 25 {
		t.Errorf("stock: got %d, want 25", waffle.Stock)
	}
	if waffle.CategoryID == 0 {
		t.Error("categoryId is zero")
	}
}

func TestGetProduct(t *testing.T) {
	listResp := doGet(t, "/api/products")
	products := decodeJSON[[]productResponse](t, listResp)
	listResp.Body.Close()
	if len(products) == 0 {
		t.Fatal("no products seeded")
	}

	resp := doGet(t, fmt.Sprintf("/api/products/%d", products[0].ID))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != products[0].ID {
		t.Errorf("id: got %d, want %d", product.ID, products[0].ID)
	}
	if product.Name != products[0].Name {
		t.Errorf("name: got %q, want %q", product.Name, products[0].Name)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/999999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Error == "" {
		t.Error("error message is empty")
	}
}
