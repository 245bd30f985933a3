package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dujiao-next/tableside/internal/models"
	"github.com/dujiao-next/tableside/internal/repository"

	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) last(t *testing.T) (string, CartUpdateMessage) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) == 0 {
		t.Fatalf("nothing published")
	}
	var msg CartUpdateMessage
	if err := json.Unmarshal(p.payloads[len(p.payloads)-1], &msg); err != nil {
		t.Fatalf("decode published payload failed: %v", err)
	}
	return p.channels[len(p.channels)-1], msg
}

func setupSharedCartTest(t *testing.T) (*SharedCartService, *recordingPublisher) {
	t.Helper()
	db := openServiceTestDB(t, "shared_cart_service_test")
	publisher := &recordingPublisher{}
	return NewSharedCartService(repository.NewSharedCartRepository(db), publisher), publisher
}

func money(t *testing.T, raw string) models.Money {
	t.Helper()
	m, err := models.ParseMoney(raw)
	if err != nil {
		t.Fatalf("parse money %s failed: %v", raw, err)
	}
	return m
}

func assertCartTotals(t *testing.T, cart *CartView) {
	t.Helper()
	totalItems := 0
	totalAmount := decimal.Zero
	for _, item := range cart.Items {
		totalItems += item.Quantity
		totalAmount = totalAmount.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if cart.TotalItems != totalItems {
		t.Fatalf("total items drifted: got %d want %d", cart.TotalItems, totalItems)
	}
	if !cart.TotalAmount.Decimal.Equal(totalAmount) {
		t.Fatalf("total amount drifted: got %s want %s", cart.TotalAmount.String(), totalAmount.String())
	}
}

func TestBuildCartItemIDIsOrderIndependent(t *testing.T) {
	a := NormalizeCartOptions(json.RawMessage(`[{"id":5,"additionalPrice":1000},{"id":7,"additionalPrice":500}]`))
	b := NormalizeCartOptions(json.RawMessage(`[{"id":7,"additionalPrice":500},{"id":5,"additionalPrice":1000}]`))
	idA := BuildCartItemID("p1", a)
	idB := BuildCartItemID("p1", b)
	if idA != idB {
		t.Fatalf("ids differ: %s vs %s", idA, idB)
	}
	if idA != "p1::5:1000|7:500" {
		t.Fatalf("unexpected id: %s", idA)
	}
	if got := BuildCartItemID("p1", nil); got != "p1" {
		t.Fatalf("unexpected id without options: %s", got)
	}
	named := NormalizeCartOptions(json.RawMessage(`[{"name":"  Extra shot ","additionalPrice":"1.50"}]`))
	if got := BuildCartItemID("p2", named); got != "p2::Extra shot:1.5" {
		t.Fatalf("unexpected id for named option: %s", got)
	}
}

func TestNormalizeCartOptionsShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{name: "empty", raw: ``, want: 0},
		{name: "null", raw: `null`, want: 0},
		{name: "objects", raw: `[{"id":1,"name":"Large","additionalPrice":2}]`, want: 1},
		{name: "strings", raw: `["Large","  ","No sugar"]`, want: 2},
		{name: "stringified", raw: `"[{\"id\":\"a\",\"additionalPrice\":1}]"`, want: 1},
		{name: "object", raw: `{"id":1}`, want: 0},
		{name: "number", raw: `42`, want: 0},
		{name: "malformed string", raw: `"[oops"`, want: 0},
		{name: "mixed", raw: `[{"id":1},7,true,"Hot"]`, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeCartOptions(json.RawMessage(tc.raw))
			if got == nil {
				t.Fatalf("options should never be nil")
			}
			if len(got) != tc.want {
				t.Fatalf("unexpected options length: got %d want %d (%+v)", len(got), tc.want, got)
			}
		})
	}
}

func TestSharedCartGetOrCreateIsStable(t *testing.T) {
	svc, _ := setupSharedCartTest(t)
	first, err := svc.GetOrCreateCart("4")
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	if first.TableID != "4" || first.TotalItems != 0 || len(first.Items) != 0 || !first.TotalAmount.IsZero() {
		t.Fatalf("unexpected new cart: %+v", first)
	}
	second, err := svc.GetOrCreateCart("4")
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("cart should be reused: %s vs %s", first.ID, second.ID)
	}
	if _, err := svc.GetOrCreateCart(" "); !errors.Is(err, ErrCartTableRequired) {
		t.Fatalf("expected table required, got %v", err)
	}
}

func TestSharedCartMergeIdempotence(t *testing.T) {
	svc, publisher := setupSharedCartTest(t)
	ctx := context.Background()
	if _, err := svc.GetOrCreateCart("4"); err != nil {
		t.Fatalf("get or create failed: %v", err)
	}

	if _, err := svc.AddItem(ctx, "4", AddCartItemInput{
		ProductID: "p1",
		Quantity:  2,
		UnitPrice: money(t, "2500"),
		Options:   json.RawMessage(`[{"id":5,"additionalPrice":1000},{"id":7,"additionalPrice":500}]`),
	}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	cart, err := svc.AddItem(ctx, "4", AddCartItemInput{
		ProductID: "p1",
		Quantity:  3,
		UnitPrice: money(t, "2500"),
		Options:   json.RawMessage(`[{"id":7,"additionalPrice":500},{"id":5,"additionalPrice":1000}]`),
	})
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected one merged item with quantity 5: %+v", cart.Items)
	}
	if cart.Items[0].BaseUnitPrice.String() != "2500.00" {
		t.Fatalf("base unit price should default to unit price: %s", cart.Items[0].BaseUnitPrice.String())
	}
	if cart.TotalItems != 5 || cart.TotalAmount.String() != "12500.00" {
		t.Fatalf("unexpected totals: %d %s", cart.TotalItems, cart.TotalAmount.String())
	}

	channel, msg := publisher.last(t)
	if channel != "cart:4" || msg.TableID != "4" || msg.Cart == nil || msg.Cart.TotalItems != 5 || len(msg.Cart.Items) != 1 {
		t.Fatalf("unexpected published message on %s: %+v", channel, msg)
	}
}

func TestSharedCartTotalsInvariant(t *testing.T) {
	svc, _ := setupSharedCartTest(t)
	ctx := context.Background()
	if _, err := svc.GetOrCreateCart("7"); err != nil {
		t.Fatalf("get or create failed: %v", err)
	}

	add := func(productID string, quantity int, price string) *CartView {
		cart, err := svc.AddItem(ctx, "7", AddCartItemInput{ProductID: productID, Quantity: quantity, UnitPrice: money(t, price)})
		if err != nil {
			t.Fatalf("add %s failed: %v", productID, err)
		}
		assertCartTotals(t, cart)
		return cart
	}
	add("coffee", 2, "3.50")
	add("cake", 1, "4.25")
	add("coffee", 1, "3.50")

	cart, err := svc.UpdateItemQuantity(ctx, "7", "cake", 4)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	assertCartTotals(t, cart)
	if cart.TotalItems != 7 || cart.TotalAmount.String() != "27.50" {
		t.Fatalf("unexpected totals after update: %d %s", cart.TotalItems, cart.TotalAmount.String())
	}

	cart, err = svc.UpdateItemQuantity(ctx, "7", "coffee", 0)
	if err != nil {
		t.Fatalf("update to zero failed: %v", err)
	}
	assertCartTotals(t, cart)
	for _, item := range cart.Items {
		if item.ID == "coffee" {
			t.Fatalf("coffee should be removed")
		}
	}
	fetched, err := svc.GetOrCreateCart("7")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(fetched.Items) != 1 || fetched.TotalItems != 4 || fetched.TotalAmount.String() != "17.00" {
		t.Fatalf("unexpected cart after removal: %+v", fetched)
	}

	cart, err = svc.RemoveItem(ctx, "7", "does-not-exist")
	if err != nil {
		t.Fatalf("removing missing item should succeed: %v", err)
	}
	assertCartTotals(t, cart)

	cart, err = svc.ClearCart(ctx, "7")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalItems != 0 || !cart.TotalAmount.IsZero() || cart.ID != fetched.ID {
		t.Fatalf("unexpected cleared cart: %+v", cart)
	}
}

func TestSharedCartRejectsInvalidInput(t *testing.T) {
	svc, publisher := setupSharedCartTest(t)
	ctx := context.Background()
	if _, err := svc.GetOrCreateCart("4"); err != nil {
		t.Fatalf("get or create failed: %v", err)
	}

	if _, err := svc.AddItem(ctx, "4", AddCartItemInput{ProductID: "", Quantity: 1, UnitPrice: money(t, "1")}); !errors.Is(err, ErrCartItemInvalid) {
		t.Fatalf("expected invalid item, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "4", AddCartItemInput{ProductID: "p", Quantity: 1}); !errors.Is(err, ErrCartItemInvalid) {
		t.Fatalf("expected invalid item for zero price, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "4", AddCartItemInput{ProductID: "p", Quantity: 0, UnitPrice: money(t, "1")}); !errors.Is(err, ErrCartQuantityInvalid) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.UpdateItemQuantity(ctx, "4", "ghost", 2); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	if len(publisher.payloads) != 0 {
		t.Fatalf("failed mutations should not publish")
	}
}

func TestSharedCartMissingCartFailsFast(t *testing.T) {
	svc, publisher := setupSharedCartTest(t)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "9", AddCartItemInput{ProductID: "p", Quantity: 1, UnitPrice: money(t, "1")}); !errors.Is(err, ErrSharedCartMissing) {
		t.Fatalf("expected missing cart, got %v", err)
	}
	if _, err := svc.RemoveItem(ctx, "9", "p"); !errors.Is(err, ErrSharedCartMissing) {
		t.Fatalf("expected missing cart, got %v", err)
	}
	if _, err := svc.ClearCart(ctx, "9"); !errors.Is(err, ErrSharedCartMissing) {
		t.Fatalf("expected missing cart, got %v", err)
	}
	if len(publisher.payloads) != 0 {
		t.Fatalf("missing cart should not publish")
	}
}

func TestSharedCartPublishFailureIsSwallowed(t *testing.T) {
	svc, publisher := setupSharedCartTest(t)
	publisher.err = errors.New("bus down")
	ctx := context.Background()
	if _, err := svc.GetOrCreateCart("4"); err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	cart, err := svc.AddItem(ctx, "4", AddCartItemInput{ProductID: "p", Quantity: 2, UnitPrice: money(t, "3")})
	if err != nil {
		t.Fatalf("add should succeed when publish fails: %v", err)
	}
	if cart.TotalItems != 2 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	fetched, err := svc.GetOrCreateCart("4")
	if err != nil || fetched.TotalItems != 2 {
		t.Fatalf("write should persist: %+v %v", fetched, err)
	}
}

func TestSharedCartItemsScopedPerTable(t *testing.T) {
	svc, _ := setupSharedCartTest(t)
	ctx := context.Background()
	for _, table := range []string{"4", "7"} {
		if _, err := svc.GetOrCreateCart(table); err != nil {
			t.Fatalf("get or create failed: %v", err)
		}
		if _, err := svc.AddItem(ctx, table, AddCartItemInput{ProductID: "tea", Quantity: 1, UnitPrice: money(t, "2")}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if _, err := svc.RemoveItem(ctx, "4", "tea"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	other, err := svc.GetOrCreateCart("7")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(other.Items) != 1 || other.Items[0].Quantity != 1 {
		t.Fatalf("other table should be untouched: %+v", other.Items)
	}
}
