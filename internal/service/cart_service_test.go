package service

import (
	"errors"
	"testing"
)

func TestCartAddAccumulatesAndChecksStock(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "cart-set", "1200", 3)

	item, err := s.cart.Add(61, product.ID, color.ID, 1)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if item.ProductName != product.Name || !item.ActualPrice.Equal(dec("1200")) {
		t.Fatalf("unexpected snapshot: %+v", item)
	}
	again, err := s.cart.Add(61, product.ID, color.ID, 2)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if again.ID != item.ID || again.Quantity != 3 {
		t.Fatalf("expected merged line with 3 sets, got id=%d qty=%d", again.ID, again.Quantity)
	}

	_, err = s.cart.Add(61, product.ID, color.ID, 1)
	var shortfall *StockShortfallError
	if !errors.As(err, &shortfall) || shortfall.Wanted != 4 || shortfall.Available != 3 {
		t.Fatalf("expected shortfall 4/3, got %v", err)
	}

	view, err := s.cart.List(61)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(view.Items) != 1 || view.Sets != 3 || view.Pieces != 12 || !view.Subtotal.Equal(dec("3600")) {
		t.Fatalf("unexpected view: sets=%d pieces=%d subtotal=%s", view.Sets, view.Pieces, view.Subtotal)
	}
}

func TestCartAddRejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "cart-invalid", "1200", 3)
	_, otherColor := s.createProduct(t, "cart-other", "900", 3)

	if _, err := s.cart.Add(62, product.ID, color.ID, 0); !errors.Is(err, ErrCartQuantityInvalid) {
		t.Fatalf("expected ErrCartQuantityInvalid, got %v", err)
	}
	if _, err := s.cart.Add(62, 9999, color.ID, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := s.cart.Add(62, product.ID, otherColor.ID, 1); !errors.Is(err, ErrColorNotFound) {
		t.Fatalf("expected ErrColorNotFound, got %v", err)
	}

	inactive := false
	if _, err := s.catalog.UpdateProduct(product.ID, ProductInput{Name: product.Name, Slug: product.Slug, Price: dec("1200"), Sizes: product.Sizes, IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := s.cart.Add(62, product.ID, color.ID, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("inactive product should not be added, got %v", err)
	}
}

func TestCartUpdateQuantity(t *testing.T) {
	s := newTestStore(t)
	product, color := s.createProduct(t, "cart-update", "1000", 2)
	item, err := s.cart.Add(63, product.ID, color.ID, 1)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := s.cart.UpdateQuantity(63, item.ID, CartActionDecrease, 0); !errors.Is(err, ErrCartMinimumQuantity) {
		t.Fatalf("expected ErrCartMinimumQuantity, got %v", err)
	}
	updated, err := s.cart.UpdateQuantity(63, item.ID, CartActionIncrease, 0)
	if err != nil || updated.Quantity != 2 {
		t.Fatalf("increase failed: %v", err)
	}
	var shortfall *StockShortfallError
	if _, err := s.cart.UpdateQuantity(63, item.ID, CartActionIncrease, 0); !errors.As(err, &shortfall) {
		t.Fatalf("expected stock shortfall, got %v", err)
	}
	if _, err := s.cart.UpdateQuantity(63, item.ID, CartActionSet, 0); !errors.Is(err, ErrCartMinimumQuantity) {
		t.Fatalf("expected ErrCartMinimumQuantity for set 0, got %v", err)
	}
	updated, err = s.cart.UpdateQuantity(63, item.ID, CartActionSet, 1)
	if err != nil || updated.Quantity != 1 {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := s.cart.UpdateQuantity(63, item.ID, "double", 0); !errors.Is(err, ErrCartActionInvalid) {
		t.Fatalf("expected ErrCartActionInvalid, got %v", err)
	}
	if _, err := s.cart.UpdateQuantity(64, item.ID, CartActionIncrease, 0); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("other user must not update the line, got %v", err)
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	s := newTestStore(t)
	first, firstColor := s.createProduct(t, "cart-remove-a", "1000", 5)
	second, secondColor := s.createProduct(t, "cart-remove-b", "1100", 5)
	item, err := s.cart.Add(65, first.ID, firstColor.ID, 1)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	s.addToCart(t, 65, second, secondColor, 1)

	if err := s.cart.Remove(66, item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
	if err := s.cart.Remove(65, item.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.cart.Clear(65); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	view, err := s.cart.List(65)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(view.Items) != 0 || !view.Subtotal.IsZero() {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
}
