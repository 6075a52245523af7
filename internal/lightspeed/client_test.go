package lightspeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

func testRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
	}
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource, dryRun bool) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.LightspeedConfig{BaseURL: srv.URL, APIKey: "test-key", OutletID: "outlet-1"}
	return NewClient(cfg, testRetry(), tokens, dryRun, zap.NewNop()), srv
}

type fakeTokens struct {
	token     string
	refreshTo string
	refreshes int32
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) { return f.token, nil }

func (f *fakeTokens) Refresh(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.refreshes, 1)
	f.token = f.refreshTo
	return f.token, nil
}

func TestRetriesTransientStatusThenSucceeds(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"s1","name":"Acme"}]}`)
	})

	client, _ := newTestClient(t, handler, nil, false)
	suppliers, err := client.ListSuppliers(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "s1", suppliers[0].ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetriesRateLimit(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})

	client, _ := newTestClient(t, handler, nil, false)
	_, err := client.ListBrands(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExhaustsRetryBudget(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, _ := newTestClient(t, handler, nil, false)
	_, err := client.ListSuppliers(context.Background(), 100)
	require.Error(t, err)

	var unavailable *apperrors.ErrRemoteUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.LastStatus)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRefreshesTokenOnUnauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	})

	tokens := &fakeTokens{token: "stale", refreshTo: "fresh"}
	client, _ := newTestClient(t, handler, tokens, false)

	_, err := client.ListSuppliers(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.refreshes))
}

func TestSecondAuthFailureIsFatal(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	tokens := &fakeTokens{token: "stale", refreshTo: "still-bad"}
	client, _ := newTestClient(t, handler, tokens, false)

	_, err := client.ListSuppliers(context.Background(), 100)
	require.Error(t, err)

	var unavailable *apperrors.ErrRemoteUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, http.StatusForbidden, unavailable.LastStatus)
	// One refresh, one retry, then fatal. No backoff loop for auth.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.refreshes))
}

func TestRejectsNonRetryableStatus(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"supplier name taken"}`)
	})

	client, _ := newTestClient(t, handler, nil, false)
	_, err := client.CreateSupplier(context.Background(), "Acme", "")
	require.Error(t, err)

	var rejected *apperrors.ErrRemoteRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	assert.Contains(t, rejected.Body, "supplier name taken")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not retry")
}

func TestListProductsFollowsPagination(t *testing.T) {
	var baseURL string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "p1" {
			fmt.Fprint(w, `{"data":[{"id":"p2","sku":"sku-2","supplier_code":"B","supplier":{"id":"s1","name":"Acme"}}]}`)
			return
		}
		fmt.Fprintf(w, `{"data":[{"id":"p1","sku":"sku-1","supplier_code":"A","supplier_id":"s1"}],"links":{"next":"%s/products?after=p1"}}`, baseURL)
	})

	client, srv := newTestClient(t, handler, nil, false)
	baseURL = srv.URL

	entries, err := client.ListProducts(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "A", entries[0].SupplierCode)
	assert.Equal(t, "s1", entries[0].SupplierID)
	// Embedded supplier object flattens to the same supplier id.
	assert.Equal(t, "B", entries[1].SupplierCode)
	assert.Equal(t, "s1", entries[1].SupplierID)
}

func TestFindSupplierByNameIsCaseInsensitive(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"s1","name":" Acme Candles "}]}`)
	})

	client, _ := newTestClient(t, handler, nil, false)
	sup, err := client.FindSupplierByName(context.Background(), "acme candles")
	require.NoError(t, err)
	require.NotNil(t, sup)
	assert.Equal(t, "s1", sup.ID)

	missing, err := client.FindSupplierByName(context.Background(), "someone else")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateProductBackfillsSKU(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			// id-list response shape without a SKU
			fmt.Fprint(w, `{"data":["p_77"]}`)
		default:
			fmt.Fprint(w, `{"data":{"id":"p_77","sku":"sku-backfilled"}}`)
		}
	})

	client, _ := newTestClient(t, handler, nil, false)
	ref, err := client.CreateProduct(context.Background(), domain.NewProduct{
		Name:         "Widget",
		SupplierCode: "W-1",
		SupplierID:   "s1",
		DefaultCost:  decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "p_77", ref.ID)
	assert.Equal(t, "sku-backfilled", ref.SKU)
}

func TestDryRunSimulatesCreates(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"data":[]}`)
	})

	client, _ := newTestClient(t, handler, nil, true)
	ctx := context.Background()

	sup, err := client.CreateSupplier(ctx, "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, "dry_supplier_Acme", sup.ID)

	prod, err := client.CreateProduct(ctx, domain.NewProduct{SupplierCode: "W-1", Name: "Widget"})
	require.NoError(t, err)
	assert.Equal(t, "dry_product_W-1", prod.ID)
	assert.Equal(t, "dry_sku_W-1", prod.SKU)

	confirmation, err := client.CreateConsignment(ctx, &domain.Consignment{
		OutletID:   "outlet-1",
		SupplierID: sup.ID,
		Lines:      []domain.ConsignmentLine{{ProductID: prod.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, DryRunConfirmationID, confirmation)

	assert.Zero(t, atomic.LoadInt32(&calls), "dry-run creates must not call the platform")
}

func TestConsignmentSubmission(t *testing.T) {
	var shellPayload, linePayload map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consignments":
			_ = json.NewDecoder(r.Body).Decode(&shellPayload)
			fmt.Fprint(w, `{"data":{"id":"c_55"}}`)
		case "/consignments/c_55/products":
			_ = json.NewDecoder(r.Body).Decode(&linePayload)
			fmt.Fprint(w, `{"data":{}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, _ := newTestClient(t, handler, nil, false)
	confirmation, err := client.CreateConsignment(context.Background(), &domain.Consignment{
		OutletID:     "outlet-1",
		SupplierID:   "s1",
		SupplierName: "Acme Candles",
		Reference:    "FO-1001",
		Lines: []domain.ConsignmentLine{
			{ProductID: "p1", SKU: "sku-1", Quantity: 2, UnitCost: decimal.RequireFromString("12.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "c_55", confirmation)

	require.NotNil(t, shellPayload)
	assert.Equal(t, "Faire Stock Order - Acme Candles", shellPayload["name"])
	assert.Equal(t, "SUPPLIER", shellPayload["type"])
	assert.Equal(t, "OPEN", shellPayload["status"])
	assert.Equal(t, "FO-1001", shellPayload["supplier_invoice"])

	require.NotNil(t, linePayload)
	assert.Equal(t, "p1", linePayload["product_id"])
	assert.Equal(t, float64(2), linePayload["count"])
}
