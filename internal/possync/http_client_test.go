package possync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientFetchOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("offset"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orders": [
			{"site_code": "3", "invoice_number": "3-327551", "customer_name": "ACME TOWING",
			 "invoice_date": "2025-08-14", "total_amount": 102.00,
			 "lines": [{"product_code": "P235/75R15", "description": "TIRE", "quantity": 2, "line_total": 102.00, "cost": 76.00}]}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret", 0)
	orders, err := client.FetchOrders(context.Background(), 100, 50)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "3-327551", order.InvoiceNumber)
	assert.Equal(t, "3", order.SiteCode)
	assert.Equal(t, "2025-08-14", order.InvoiceDate.Format("2006-01-02"))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 102.0, order.Lines[0].LineTotal)
}

func TestHTTPClientNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", 0)
	_, err := client.FetchOrders(context.Background(), 0, 10)
	assert.ErrorContains(t, err, "status 502")
}

func TestOrderToInvoice(t *testing.T) {
	order := Order{
		SiteCode:      "3",
		InvoiceNumber: "3-327551",
		CustomerName:  "ACME TOWING",
		TotalAmount:   102,
		Lines: []OrderLine{
			{ProductCode: "A", LineTotal: 51},
			{ProductCode: "B", LineTotal: 51},
		},
	}

	inv := order.ToInvoice()
	assert.Equal(t, "3:3-327551", inv.NaturalKey())
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 1, inv.Items[0].LineNumber)
	assert.Equal(t, 2, inv.Items[1].LineNumber)
}
