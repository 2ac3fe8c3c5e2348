package payment

import (
	"context"
	"fmt"
	"net"

	"horsemarket-web/internal/api"

	"github.com/pkg/errors"
)

// Fetcher reads the current state of a payment.
type Fetcher interface {
	FetchStatus(ctx context.Context, paymentID string) (Record, error)
}

type FetcherFunc func(ctx context.Context, paymentID string) (Record, error)

func (f FetcherFunc) FetchStatus(ctx context.Context, paymentID string) (Record, error) {
	return f(ctx, paymentID)
}

// FetchError carries a short human-readable reason next to the underlying error.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	return e.Reason + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable part of err.
func Reason(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type StatusClient interface {
	PaymentStatus(ctx context.Context, paymentID string, creds api.Credentials) (*api.PaymentStatus, error)
}

// APIFetcher reads payment status through the marketplace API. When
// authenticated is false the bearer token is dropped and only cookies are sent.
type APIFetcher struct {
	client StatusClient
	creds  api.Credentials
}

func NewAPIFetcher(client StatusClient, creds api.Credentials, authenticated bool) *APIFetcher {
	if !authenticated {
		creds = creds.Anonymous()
	}
	return &APIFetcher{client: client, creds: creds}
}

func (f *APIFetcher) FetchStatus(ctx context.Context, paymentID string) (Record, error) {
	status, err := f.client.PaymentStatus(ctx, paymentID, f.creds)
	if err != nil {
		return Record{}, &FetchError{Reason: describe(err), Err: err}
	}

	record := Record{
		ID:          paymentID,
		Status:      Status(status.Status),
		Amount:      status.Amount,
		PackageType: status.PackageType,
	}
	if status.Listing != nil {
		record.Listing = &ListingRef{ID: status.Listing.ID, Slug: status.Listing.Slug}
	}
	return record, nil
}

func describe(err error) string {
	if code, ok := api.StatusCode(err); ok {
		return fmt.Sprintf("payment service responded with status %d", code)
	}
	if errors.Is(err, api.ErrUnsuccessful) {
		return "payment service could not report the status"
	}
	if errors.Is(err, api.ErrMalformedResponse) {
		return "payment service sent a malformed response"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "payment service timed out"
	}
	return "payment service is unreachable"
}
