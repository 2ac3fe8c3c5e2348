package payment

import (
	"strings"

	"horsemarket-web/internal/config"
)

type FlowName string

const (
	FlowListing FlowName = "listing"
	FlowPublish FlowName = "publish"
	FlowCredits FlowName = "credits"
)

const ManagePath = "/my/listings"

// Flow is one call site of the payment confirmation poller.
type Flow struct {
	Name          FlowName
	Options       Options
	Authenticated bool
	// RetryPath leads back to the purchase flow; "{id}" is replaced by the listing id.
	RetryPath string
	// FallbackPath is used for retry when no listing id is known.
	FallbackPath string
	Labels       *Labels
}

// Flows builds the listing, publish and credits flows from configuration.
func Flows(cfg config.Payment, labels *Labels) map[FlowName]Flow {
	build := func(name FlowName, fc config.PaymentFlow, retry, fallback string) Flow {
		classifier := Classify
		if fc.FailedIsPending {
			classifier = ClassifyIgnoringFailed
		}
		return Flow{
			Name: name,
			Options: Options{
				Interval:    fc.Interval(),
				MaxAttempts: fc.MaxAttempts,
				MaxDuration: fc.MaxDuration(),
				Classifier:  classifier,
			},
			Authenticated: fc.Authenticated,
			RetryPath:     retry,
			FallbackPath:  fallback,
			Labels:        labels,
		}
	}

	return map[FlowName]Flow{
		FlowListing: build(FlowListing, cfg.Listing, "/listings/{id}/checkout", "/listings/new"),
		FlowPublish: build(FlowPublish, cfg.Publish, "/listings/{id}/publish", ManagePath),
		FlowCredits: build(FlowCredits, cfg.Credits, "/credits", "/credits"),
	}
}

func (f Flow) retryHref(listingID string) string {
	if !strings.Contains(f.RetryPath, "{id}") {
		return f.RetryPath
	}
	if listingID == "" {
		return f.FallbackPath
	}
	return strings.ReplaceAll(f.RetryPath, "{id}", listingID)
}
