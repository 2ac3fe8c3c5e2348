package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type ListingRef struct {
	ID   string `json:"id,omitempty"`
	Slug string `json:"slug"`
}

type PaymentStatus struct {
	ID          string              `json:"id,omitempty"`
	Status      string              `json:"status"`
	Amount      decimal.NullDecimal `json:"amount"`
	PackageType string              `json:"packageType,omitempty"`
	Listing     *ListingRef         `json:"listing,omitempty"`
}

type ListingBundles struct {
	Bundle5  decimal.Decimal `json:"bundle5"`
	Bundle10 decimal.Decimal `json:"bundle10"`
	Bundle20 decimal.Decimal `json:"bundle20"`
}

// Checkout is the gateway handoff returned when a payment is initiated.
type Checkout struct {
	PaymentID  string `json:"paymentId"`
	PaymentURL string `json:"paymentUrl"`
}

func (c *Client) PaymentStatus(ctx context.Context, paymentID string, creds Credentials) (*PaymentStatus, error) {
	if paymentID == "" {
		return nil, errors.New("payment id is empty")
	}
	var status PaymentStatus
	if err := c.get(ctx, "/api/payments/status/"+url.PathEscape(paymentID), nil, creds, &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		return nil, errors.Wrapf(ErrMalformedResponse, "payment %s: response carries no status", paymentID)
	}
	return &status, nil
}

func (c *Client) ListingBundles(ctx context.Context, creds Credentials) (*ListingBundles, error) {
	var bundles ListingBundles
	if err := c.get(ctx, "/api/payments/listing-bundles", nil, creds, &bundles); err != nil {
		return nil, err
	}
	return &bundles, nil
}

func (c *Client) CheckoutListing(ctx context.Context, listingID, packageType string, creds Credentials) (*Checkout, error) {
	payload := map[string]string{"listingId": listingID, "packageType": packageType}
	var checkout Checkout
	if err := c.send(ctx, http.MethodPost, "/api/payments/listing", creds, payload, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *Client) CheckoutPublish(ctx context.Context, listingID string, creds Credentials) (*Checkout, error) {
	payload := map[string]string{"listingId": listingID}
	var checkout Checkout
	if err := c.send(ctx, http.MethodPost, "/api/payments/publish", creds, payload, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *Client) CheckoutBundle(ctx context.Context, bundle string, creds Credentials) (*Checkout, error) {
	payload := map[string]string{"bundle": bundle}
	var checkout Checkout
	if err := c.send(ctx, http.MethodPost, "/api/payments/bundle", creds, payload, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}
