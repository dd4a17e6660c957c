//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func findProduct(t *testing.T, name string) productResponse {
	t.Helper()

	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)
	for _, p := range products {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not found", name)
	return productResponse{}
}

func clearCart(t *testing.T) {
	t.Helper()

	resp := doRequest(t, http.MethodDelete, "/api/cart", testToken, nil)
	resp.Body.Close()
}

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_RejectsBadToken(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/cart", "not-a-real-token", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_EmptyCartHasZeroTotals(t *testing.T) {
	clearCart(t)

	resp := doRequest(t, http.MethodGet, "/api/cart", testToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 0 {
		t.Errorf("items: got %d, want 0", len(cart.Items))
	}
	if cart.TotalItems != 0 {
		t.Errorf("totalItems: got %d, want 0", cart.TotalItems)
	}
	if cart.TotalPrice != 0 {
		t.Errorf("totalPrice: got %v, want 0", cart.TotalPrice)
	}
}

func TestCart_AddItem(t *testing.T) {
	clearCart(t)
	waffle := findProduct(t, "Waffle with Berries")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", testToken, addItemRequest{
		ProductID: waffle.ID,
		Quantity:  2,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cart := decodeJSON[cartResponse](t, resp)
	if cart.TotalItems != 2 {
		t.Errorf("totalItems: got %d, want 2", cart.TotalItems)
	}
	if cart.TotalPrice != 1000 {
		t.Errorf("totalPrice: got %v, want 1000", cart.TotalPrice)
	}
}

func TestCart_DiscountApplied(t *testing.T) {
	clearCart(t)
	cake := findProduct(t, "Red Velvet Cake")

	// Cake is seeded with a 20% category discount: 300 -> 240.
	resp := doRequest(t, http.MethodPost, "/api/cart/items", testToken, addItemRequest{
		ProductID: cake.ID,
		Quantity:  1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(cart.Items))
	}
	if cart.Items[0].UnitFinalPrice != 240 {
		t.Errorf("unitFinalPrice: got %v, want 240", cart.Items[0].UnitFinalPrice)
	}
	if cart.TotalPrice != 240 {
		t.Errorf("totalPrice: got %v, want 240", cart.TotalPrice)
	}
}

func TestCart_SetQuantityAndRemove(t *testing.T) {
	clearCart(t)
	waffle := findProduct(t, "Waffle with Berries")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", testToken, addItemRequest{
		ProductID: waffle.ID,
		Quantity:  1,
	})
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, fmt.Sprintf("/api/cart/items/%d", waffle.ID), testToken, setQuantityRequest{Quantity: 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set quantity: expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.TotalItems != 3 {
		t.Errorf("totalItems after set: got %d, want 3", cart.TotalItems)
	}

	resp = doRequest(t, http.MethodDelete, fmt.Sprintf("/api/cart/items/%d", waffle.ID), testToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove item: expected 200, got %d", resp.StatusCode)
	}
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.TotalItems != 0 {
		t.Errorf("totalItems after remove: got %d, want 0", cart.TotalItems)
	}
}

func TestCart_SetQuantityBeyondStock(t *testing.T) {
	clearCart(t)
	brulee := findProduct(t, "Vanilla Bean Creme Brulee")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", testToken, addItemRequest{
		ProductID: brulee.ID,
		Quantity:  1,
	})
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, fmt.Sprintf("/api/cart/items/%d", brulee.ID), testToken, setQuantityRequest{
		Quantity: brulee.Stock + 1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCart_AddUnknownProduct(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/cart/items", testToken, addItemRequest{
		ProductID: 999999,
		Quantity:  1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
