package ithink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/setwear/internal/shipping"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(path string, data map[string]interface{}) (int, interface{})) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var envelope map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &envelope))
		status, resp := handler(r.URL.Path, envelope["data"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func testClient(baseURL string) *Client {
	return New(Config{
		BaseURL:         baseURL,
		AccessToken:     "tok",
		SecretKey:       "sec",
		PickupAddressID: "101",
		StoreID:         "7",
		HSNCode:         "6204",
		TaxRate:         "5",
		Timeout:         5 * time.Second,
		CreateTimeout:   5 * time.Second,
	})
}

func testPackage() shipping.Package {
	return shipping.Package{
		WeightKg: decimal.RequireFromString("0.755"),
		LengthCm: decimal.NewFromInt(30),
		WidthCm:  decimal.NewFromInt(25),
		HeightCm: decimal.NewFromInt(5),
	}
}

func TestRatesBuildsPayloadAndParsesOptions(t *testing.T) {
	var captured map[string]interface{}
	server := newTestServer(t, func(path string, data map[string]interface{}) (int, interface{}) {
		require.Equal(t, "/rate/check.json", path)
		captured = data
		return http.StatusOK, map[string]interface{}{
			"status": "success",
			"data": []map[string]interface{}{
				{"logistic_name": "Delhivery", "rate": 62.5},
				{"logistic_name": "Xpressbees", "rate": "48"},
				{"logistic_name": "Ekart", "rate": 0},
			},
		}
	})

	options, err := testClient(server.URL).Rates(context.Background(), shipping.RateRequest{
		FromPincode:   "421302",
		ToPincode:     "560001",
		Package:       testPackage(),
		DeclaredValue: decimal.RequireFromString("1719.195"),
		PaymentMode:   "prepaid",
	})
	require.NoError(t, err)
	require.Len(t, options, 3)
	require.Equal(t, "ithink", options[1].Courier)
	require.Equal(t, "Xpressbees", options[1].ServiceName)
	require.True(t, options[1].Rate.Equal(decimal.NewFromInt(48)))

	require.Equal(t, "421302", captured["from_pincode"])
	require.Equal(t, "560001", captured["to_pincode"])
	require.Equal(t, "0.76", captured["shipping_weight_kg"])
	require.Equal(t, "1719.20", captured["product_mrp"])
	require.Equal(t, "Prepaid", captured["payment_method"])
	require.Equal(t, "forward", captured["order_type"])
	require.Equal(t, "30", captured["shipping_length_cms"])
	require.Equal(t, "tok", captured["access_token"])

	best, err := shipping.SelectCheapest(options)
	require.NoError(t, err)
	require.Equal(t, "Xpressbees", best.ServiceName)
}

func TestRatesRejectedCarriesMessage(t *testing.T) {
	server := newTestServer(t, func(string, map[string]interface{}) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{"status": "error", "message": "Pincode not serviceable"}
	})

	_, err := testClient(server.URL).Rates(context.Background(), shipping.RateRequest{ToPincode: "999999", Package: testPackage()})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAPIRejected))
	require.Contains(t, err.Error(), "Pincode not serviceable")
}

func TestRatesHTTPErrorAndMalformedBody(t *testing.T) {
	failing := newTestServer(t, func(string, map[string]interface{}) (int, interface{}) {
		return http.StatusBadGateway, map[string]interface{}{"message": "gateway down"}
	})
	_, err := testClient(failing.URL).Rates(context.Background(), shipping.RateRequest{Package: testPackage()})
	require.True(t, errors.Is(err, ErrRequestFailed))
	require.Contains(t, err.Error(), "gateway down")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	t.Cleanup(garbage.Close)
	_, err = testClient(garbage.URL).Rates(context.Background(), shipping.RateRequest{Package: testPackage()})
	require.True(t, errors.Is(err, ErrResponseInvalid))
}

func TestRatesRequiresCredentials(t *testing.T) {
	_, err := New(Config{}).Rates(context.Background(), shipping.RateRequest{})
	require.True(t, errors.Is(err, ErrConfigInvalid))
}

func shipmentRequest() shipping.ShipmentRequest {
	return shipping.ShipmentRequest{
		OrderRef:  "SW-SW20260101120000123456",
		OrderDate: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		Receiver: shipping.Address{
			Name:    "Asha",
			Phone:   "9876543210",
			Address: "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
		},
		Items: []shipping.Line{
			{Name: "Kurti Set", SKU: "kurti-set-red", Quantity: 2, UnitPrice: decimal.NewFromInt(999)},
		},
		Package:       testPackage(),
		PaymentMode:   "cod",
		CODAmount:     decimal.NewFromInt(1998),
		DeclaredValue: decimal.NewFromInt(1998),
		Option:        shipping.RateOption{Courier: "ithink", ServiceName: "Xpressbees", Rate: decimal.NewFromInt(48)},
	}
}

func TestCreateShipmentSuccess(t *testing.T) {
	var captured map[string]interface{}
	server := newTestServer(t, func(path string, data map[string]interface{}) (int, interface{}) {
		require.Equal(t, "/order/add.json", path)
		captured = data
		return http.StatusOK, map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"1": map[string]interface{}{"status": "success", "waybill": "1333110035967", "logistic_name": "Xpressbees", "remark": ""},
			},
		}
	})

	result, err := testClient(server.URL).CreateShipment(context.Background(), shipmentRequest())
	require.NoError(t, err)
	require.Equal(t, "1333110035967", result.TrackingID)
	require.Equal(t, "Xpressbees", result.ServiceName)

	require.Equal(t, "Xpressbees", captured["logistics"])
	require.Equal(t, "101", captured["pickup_address_id"])
	shipments := captured["shipments"].([]interface{})
	require.Len(t, shipments, 1)
	shipment := shipments[0].(map[string]interface{})
	require.Equal(t, "SW-SW20260101120000123456", shipment["order"])
	require.Equal(t, "09-03-2026", shipment["order_date"])
	require.Equal(t, "COD", shipment["payment_mode"])
	require.Equal(t, "1998.00", shipment["cod_amount"])
	require.Equal(t, "no-email@example.com", shipment["email"])
	require.Equal(t, "India", shipment["country"])
	require.Equal(t, "101", shipment["return_address_id"])
	products := shipment["products"].([]interface{})
	product := products[0].(map[string]interface{})
	require.Equal(t, "2", product["product_quantity"])
	require.Equal(t, "999.00", product["product_price"])
	require.Equal(t, "6204", product["product_hsn_code"])

	data := result.Request["data"].(map[string]interface{})
	require.Equal(t, "***", data["access_token"])
	require.Equal(t, "***", data["secret_key"])
}

func TestCreateShipmentStagingForcesDelhivery(t *testing.T) {
	var logistics interface{}
	server := newTestServer(t, func(_ string, data map[string]interface{}) (int, interface{}) {
		logistics = data["logistics"]
		return http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"1": map[string]interface{}{"status": "success", "waybill": "AWB1"}},
		}
	})
	client := testClient(server.URL)
	client.cfg.Staging = true

	_, err := client.CreateShipment(context.Background(), shipmentRequest())
	require.NoError(t, err)
	require.Equal(t, "Delhivery", logistics)
}

func TestCreateShipmentRejectedKeepsAudit(t *testing.T) {
	server := newTestServer(t, func(string, map[string]interface{}) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"1": map[string]interface{}{"status": "error", "remark": "Pincode is not serviceable"}},
		}
	})

	result, err := testClient(server.URL).CreateShipment(context.Background(), shipmentRequest())
	require.True(t, errors.Is(err, ErrAPIRejected))
	require.Contains(t, err.Error(), "Pincode is not serviceable")
	require.NotNil(t, result)
	require.Empty(t, result.TrackingID)
	require.NotNil(t, result.Request)
	require.NotNil(t, result.Response)
}

func TestTrackParsesStatus(t *testing.T) {
	server := newTestServer(t, func(path string, data map[string]interface{}) (int, interface{}) {
		require.Equal(t, "/order/track.json", path)
		require.Equal(t, "AWB1,AWB2", data["awb_number_list"])
		return http.StatusOK, map[string]interface{}{
			"status_code": 200,
			"data": map[string]interface{}{
				"AWB1": map[string]interface{}{"message": "success", "current_status": "In Transit", "current_status_code": "IT"},
				"AWB2": map[string]interface{}{"message": "success", "current_status": "Delivered", "current_status_code": "DL"},
			},
		}
	})

	info, err := testClient(server.URL).Track(context.Background(), "AWB1", " AWB2 ", "")
	require.NoError(t, err)
	require.Equal(t, "In Transit", info["AWB1"].Status)
	require.Equal(t, "DL", info["AWB2"].StatusCode)
}

func TestLabelReturnsFileName(t *testing.T) {
	server := newTestServer(t, func(path string, data map[string]interface{}) (int, interface{}) {
		require.Equal(t, "/shipping/label.json", path)
		require.Equal(t, "A6", data["page_size"])
		return http.StatusOK, map[string]interface{}{"status": "success", "file_name": "https://labels.example/AWB1.pdf"}
	})

	label, err := testClient(server.URL).Label(context.Background(), "a6", "AWB1")
	require.NoError(t, err)
	require.Equal(t, "https://labels.example/AWB1.pdf", label.URL)
}

func TestLabelPassesThroughPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(server.Close)

	label, err := testClient(server.URL).Label(context.Background(), "A4", "AWB1")
	require.NoError(t, err)
	require.Empty(t, label.URL)
	require.Equal(t, []byte("%PDF-1.4"), label.PDF)
}

func TestWarehouses(t *testing.T) {
	server := newTestServer(t, func(path string, data map[string]interface{}) (int, interface{}) {
		require.Equal(t, "/warehouse/get.json", path)
		require.Equal(t, "7", data["store_id"])
		return http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   []map[string]interface{}{{"id": "101", "company_name": "Setwear"}},
		}
	})

	warehouses, err := testClient(server.URL).Warehouses(context.Background())
	require.NoError(t, err)
	require.Len(t, warehouses, 1)
	require.Equal(t, "101", warehouses[0]["id"])
}
