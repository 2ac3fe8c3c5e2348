package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"horsemarket-web/internal/config"

	"github.com/h2non/gock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://api.example.com"

func newTestClient(timeoutMs int) *Client {
	return NewClient(config.API{BaseURL: baseURL + "/", TimeoutMs: timeoutMs}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_PaymentStatus(t *testing.T) {
	tests := []struct {
		name           string
		mockResponse   func()
		creds          Credentials
		expectedError  bool
		expectedErrMsg string
		check          func(t *testing.T, status *PaymentStatus)
	}{
		{
			name: "Success",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					MatchHeader("Authorization", "^Bearer tok$").
					MatchHeader("Cookie", "sid=abc").
					Reply(200).
					JSON(map[string]any{
						"success": true,
						"data": map[string]any{
							"status":      "COMPLETED",
							"amount":      150000,
							"packageType": "OSON_START",
							"listing":     map[string]string{"slug": "black-stallion"},
						},
					})
			},
			creds: Credentials{Token: "tok", Cookie: "sid=abc"},
			check: func(t *testing.T, status *PaymentStatus) {
				assert.Equal(t, "COMPLETED", status.Status)
				assert.True(t, status.Amount.Valid)
				assert.True(t, decimal.NewFromInt(150000).Equal(status.Amount.Decimal))
				assert.Equal(t, "OSON_START", status.PackageType)
				require.NotNil(t, status.Listing)
				assert.Equal(t, "black-stallion", status.Listing.Slug)
			},
		},
		{
			name: "Pending without optional fields",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					Reply(200).
					JSON(map[string]any{"success": true, "data": map[string]any{"status": "PENDING"}})
			},
			check: func(t *testing.T, status *PaymentStatus) {
				assert.Equal(t, "PENDING", status.Status)
				assert.False(t, status.Amount.Valid)
				assert.Nil(t, status.Listing)
			},
		},
		{
			name: "Unsuccessful envelope",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					Reply(200).
					JSON(map[string]any{"success": false, "message": "payment not found"})
			},
			expectedError:  true,
			expectedErrMsg: "payment not found",
		},
		{
			name: "Error",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					Reply(500).
					JSON(map[string]any{"success": false, "message": "internal server error"})
			},
			expectedError:  true,
			expectedErrMsg: "status 500",
		},
		{
			name: "Malformed body",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					Reply(200).
					BodyString("<html>")
			},
			expectedError:  true,
			expectedErrMsg: "decode response",
		},
		{
			name: "Timeout",
			mockResponse: func() {
				gock.New(baseURL).
					Get("/api/payments/status/pay-1").
					Reply(200).
					Delay(300 * time.Millisecond).
					JSON(map[string]any{"success": true, "data": map[string]any{"status": "PENDING"}})
			},
			expectedError:  true,
			expectedErrMsg: "Client.Timeout exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mockResponse()

			client := newTestClient(100)
			status, err := client.PaymentStatus(context.Background(), "pay-1", tt.creds)
			if tt.expectedError {
				assert.Error(t, err)
				if tt.expectedErrMsg != "" {
					assert.Contains(t, err.Error(), tt.expectedErrMsg)
				}
			} else {
				require.NoError(t, err)
				tt.check(t, status)
			}
			assert.True(t, gock.IsDone())
		})
	}
}

func TestClient_ErrorTypes(t *testing.T) {
	defer gock.Off()

	gock.New(baseURL).Get("/api/auth/me").Reply(401).JSON(map[string]any{"success": false, "message": "unauthorized"})
	gock.New(baseURL).Get("/api/payments/listing-bundles").Reply(200).JSON(map[string]any{"success": false})

	client := newTestClient(1000)

	_, err := client.Me(context.Background(), Credentials{})
	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, err = client.ListingBundles(context.Background(), Credentials{})
	assert.True(t, errors.Is(err, ErrUnsuccessful))
	_, ok = StatusCode(err)
	assert.False(t, ok)

	assert.True(t, gock.IsDone())
}

func TestClient_PaymentStatus_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not JSON", "<html>"},
		{"Data of wrong shape", `{"success": true, "data": [1, 2]}`},
		{"No status", `{"success": true, "data": {"paymentId": "pay-1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			gock.New(baseURL).Get("/api/payments/status/pay-1").Reply(200).BodyString(tt.body)

			_, err := newTestClient(1000).PaymentStatus(context.Background(), "pay-1", Credentials{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			_, ok := StatusCode(err)
			assert.False(t, ok)
		})
	}
}

func TestClient_PaymentStatus_EmptyID(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).Get("/api/payments/status/").Reply(200)

	_, err := newTestClient(1000).PaymentStatus(context.Background(), "", Credentials{})
	assert.Error(t, err)
	assert.False(t, gock.IsDone())
}

func TestClient_ListingBundles(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Get("/api/payments/listing-bundles").
		Reply(200).
		JSON(map[string]any{"success": true, "data": map[string]any{"bundle5": 50000, "bundle10": 90000, "bundle20": "160000.50"}})

	bundles, err := newTestClient(1000).ListingBundles(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "50000", bundles.Bundle5.String())
	assert.Equal(t, "90000", bundles.Bundle10.String())
	assert.Equal(t, "160000.5", bundles.Bundle20.String())
	assert.True(t, gock.IsDone())
}

func TestClient_Login(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Post("/api/auth/login").
		MatchType("json").
		JSON(map[string]string{"email": "rider@example.com", "password": "secret"}).
		Reply(200).
		SetHeader("Set-Cookie", "sid=xyz; Path=/; HttpOnly").
		JSON(map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "jwt-token",
				"user":  map[string]string{"id": "u1", "name": "Rider", "role": "USER"},
			},
		})

	result, err := newTestClient(1000).Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", result.Token)
	assert.Equal(t, "u1", result.User.ID)
	assert.False(t, result.User.IsAdmin())
	assert.Equal(t, "sid=xyz", result.Cookie)
	assert.True(t, gock.IsDone())
}

func TestClient_SearchListings(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Get("/api/listings").
		MatchParam("region", "Toshkent").
		MatchParam("district", "Chirchiq").
		MatchParam("q", "arab").
		Reply(200).
		JSON(map[string]any{
			"success": true,
			"data": map[string]any{
				"items": []map[string]any{{"id": "l1", "slug": "arab-mare", "title": "Arab mare", "price": 1200}},
				"total": 1,
				"page":  1,
			},
		})

	page, err := newTestClient(1000).SearchListings(context.Background(), ListingQuery{
		Region:   "Toshkent",
		District: "Chirchiq",
		Text:     "arab",
	}, Credentials{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "arab-mare", page.Items[0].Slug)
	assert.Equal(t, 1, page.Total)
	assert.True(t, gock.IsDone())
}

func TestClient_UploadMedia(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Post("/api/listings/l1/media").
		MatchHeader("Content-Type", "^multipart/form-data; boundary=").
		Reply(200).
		JSON(map[string]any{"success": true, "data": []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}})

	client := newTestClient(1000)
	urls, err := client.UploadMedia(context.Background(), "l1", []MediaFile{
		{Name: "a.jpg", Content: strings.NewReader("aaa")},
		{Name: "b.jpg", Content: strings.NewReader("bbb")},
	}, Credentials{Token: "tok"})
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.True(t, gock.IsDone())

	_, err = client.UploadMedia(context.Background(), "l1", nil, Credentials{})
	assert.Error(t, err)
}

func TestClient_Checkout(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Post("/api/payments/publish").
		JSON(map[string]string{"listingId": "l1"}).
		Reply(200).
		JSON(map[string]any{"success": true, "data": map[string]string{"paymentId": "pay-9", "paymentUrl": "https://gw.example.com/pay-9"}})

	checkout, err := newTestClient(1000).CheckoutPublish(context.Background(), "l1", Credentials{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "pay-9", checkout.PaymentID)
	assert.Equal(t, "https://gw.example.com/pay-9", checkout.PaymentURL)
	assert.True(t, gock.IsDone())
}

func TestCredentials_Anonymous(t *testing.T) {
	creds := Credentials{Token: "tok", Cookie: "sid=1"}.Anonymous()
	assert.Empty(t, creds.Token)
	assert.Equal(t, "sid=1", creds.Cookie)
}
