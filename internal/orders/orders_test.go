package orders_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/pkg/carrier"
)

const orderJSON = `{
	"id": "order_01",
	"display_id": 1042,
	"email": "jan@example.com",
	"shipping_address": {"first_name": "Jan", "last_name": "Peeters", "address_1": "Veldstraat 1", "city": "Gent", "postal_code": "9000", "country_code": "be"},
	"items": [{"quantity": 2, "variant": {"weight": 250}}],
	"shipping_methods": [{"id": "sm_1", "data": {"myparcel": {"carrier": "bpost"}}}]
}`

func TestHTTPStore_RetrieveOrder_Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/orders/order_01", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"order":` + orderJSON + `}`))
	}))
	defer srv.Close()

	store := orders.NewHTTPStore(orders.HTTPStoreConfig{BaseURL: srv.URL, Token: "tok"})
	order, err := store.RetrieveOrder(context.Background(), "order_01")

	require.NoError(t, err)
	assert.Equal(t, "1042", order.Reference())
	assert.Equal(t, "Jan Peeters", order.ShippingAddress.FullName())
	require.Len(t, order.Items, 1)
	assert.Equal(t, 250.0, *order.Items[0].Variant.Weight)
	assert.Len(t, order.ShippingMethodData(), 1)
}

func TestHTTPStore_RetrieveOrder_Bare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orderJSON))
	}))
	defer srv.Close()

	store := orders.NewHTTPStore(orders.HTTPStoreConfig{BaseURL: srv.URL})
	order, err := store.RetrieveOrder(context.Background(), "order_01")

	require.NoError(t, err)
	assert.Equal(t, "order_01", order.ID)
}

func TestHTTPStore_RetrieveOrder_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := orders.NewHTTPStore(orders.HTTPStoreConfig{BaseURL: srv.URL})
	_, err := store.RetrieveOrder(context.Background(), "missing")

	assert.True(t, errors.Is(err, carrier.ErrOrderNotFound))
}

func TestOrder_ReferenceFallsBackToID(t *testing.T) {
	o := &orders.Order{ID: "order_02"}
	assert.Equal(t, "order_02", o.Reference())
}

func TestStaticStore(t *testing.T) {
	store := orders.NewStaticStore(&orders.Order{ID: "a"})

	o, err := store.RetrieveOrder(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", o.ID)

	_, err = store.RetrieveOrder(context.Background(), "b")
	assert.True(t, errors.Is(err, carrier.ErrOrderNotFound))
}
