package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/testutil"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeVerifier answers Retrieve from a fixed table.
type fakeVerifier struct {
	mu      sync.Mutex
	results map[string]*payment.Verification
	err     error
	calls   int
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{results: map[string]*payment.Verification{}}
}

func (f *fakeVerifier) set(v *payment.Verification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[v.Reference] = v
}

func (f *fakeVerifier) Retrieve(_ context.Context, reference string) (*payment.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.results[reference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payment.ErrReferenceNotFound, reference)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingOrderRepo records how often orders are read.
type countingOrderRepo struct {
	repository.OrderRepository
	reads atomic.Int32
}

func (r *countingOrderRepo) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	r.reads.Add(1)
	return r.OrderRepository.FindByID(ctx, orderID)
}

// countingInventory wraps the real adjuster and counts invocations.
type countingInventory struct {
	next  InventoryAdjuster
	err   error
	calls atomic.Int32
}

func (c *countingInventory) OnOrderPaid(ctx context.Context, order *model.Order) error {
	c.calls.Add(1)
	if c.next != nil {
		if err := c.next.OnOrderPaid(ctx, order); err != nil {
			return err
		}
	}
	return c.err
}

type fixture struct {
	db        *gorm.DB
	orders    *countingOrderRepo
	products  repository.ProductRepository
	carts     repository.CartRepository
	events    repository.WebhookEventRepository
	stripe    *fakeVerifier
	paypal    *fakeVerifier
	braintree *fakeVerifier
	inventory *countingInventory
	clock     *fakeClock
	svc       ReconcileService
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		orders:    &countingOrderRepo{OrderRepository: repository.NewOrderRepository(db)},
		products:  repository.NewProductRepository(db),
		carts:     repository.NewCartRepository(db),
		events:    repository.NewWebhookEventRepository(db),
		stripe:    newFakeVerifier(),
		paypal:    newFakeVerifier(),
		braintree: newFakeVerifier(),
		clock:     &fakeClock{now: time.Date(2026, 10, 16, 9, 30, 0, 123456789, time.UTC)},
	}
	f.inventory = &countingInventory{next: NewInventoryAdjuster(f.products, f.carts)}
	f.svc = NewReconcileService(
		f.orders,
		map[model.PaymentMethod]payment.Verifier{
			model.PaymentMethodStripe:    f.stripe,
			model.PaymentMethodPayPal:    f.paypal,
			model.PaymentMethodBraintree: f.braintree,
		},
		f.inventory,
		"usd",
		WithClock(f.clock.Now),
		WithLogger(testLogger),
	)
	return f
}

// succeeded is a provider report of a successful USD payment.
func succeeded(t *testing.T, reference, orderID, amount string) *payment.Verification {
	return &payment.Verification{
		Reference:     reference,
		Status:        "succeeded",
		Succeeded:     true,
		LinkedOrderID: orderID,
		Amount:        testutil.Dec(t, amount),
		Currency:      "USD",
		PayerEmail:    "buyer@example.com",
	}
}

func signStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

var errBoom = errors.New("boom")
