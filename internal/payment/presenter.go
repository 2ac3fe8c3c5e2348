package payment

import (
	"github.com/shopspring/decimal"
)

type Action struct {
	Label   string `json:"label"`
	Href    string `json:"href"`
	Primary bool   `json:"primary"`
}

type Summary struct {
	TierLabel   string           `json:"tierLabel,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ListingSlug string           `json:"listingSlug,omitempty"`
}

// View is the rendered result page for one payment update.
type View struct {
	PaymentID      string   `json:"paymentId,omitempty"`
	Flow           FlowName `json:"flow"`
	State          UIState  `json:"state"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Reason         string   `json:"reason,omitempty"`
	Polling        bool     `json:"polling"`
	CheckBackLater bool     `json:"checkBackLater,omitempty"`
	Summary        *Summary `json:"summary,omitempty"`
	Actions        []Action `json:"actions"`
}

var manageAction = Action{Label: "My listings", Href: ManagePath}

// Present renders u for this flow. listingID is the id carried in the page URL;
// the listing reference on the record takes precedence.
func (f Flow) Present(u Update, listingID string) View {
	view := View{
		PaymentID: u.PaymentID,
		Flow:      f.Name,
		State:     u.State,
		Actions:   []Action{},
	}

	switch u.State {
	case StateLoading:
		view.Title = "Checking payment"
		view.Message = "Confirming your payment, this usually takes a few seconds."
		view.Polling = true

	case StatePending:
		view.Title = "Payment is processing"
		if u.Expired {
			view.Message = "Confirmation is taking longer than usual. Check back later in My listings."
			view.CheckBackLater = true
		} else {
			view.Message = "We are waiting for the payment provider to confirm your payment."
			view.Polling = true
		}
		primary := manageAction
		primary.Primary = true
		view.Actions = append(view.Actions, primary)

	case StateSuccess:
		view.Title = "Payment successful"
		view.Message = "Thank you, your payment has been confirmed."
		view.Summary = f.summary(u.Record)
		if u.Record != nil && u.Record.Listing != nil && u.Record.Listing.Slug != "" {
			view.Actions = append(view.Actions, Action{
				Label:   "View listing",
				Href:    "/listings/" + u.Record.Listing.Slug,
				Primary: true,
			})
		}
		view.Actions = append(view.Actions, manageAction)

	case StateFailed:
		view.Title = "Payment failed"
		view.Message = "Your payment could not be completed."
		view.Reason = failureReason(u)
		if u.Record != nil && u.Record.Listing != nil && u.Record.Listing.ID != "" {
			listingID = u.Record.Listing.ID
		}
		view.Actions = append(view.Actions,
			Action{Label: "Try again", Href: f.retryHref(listingID), Primary: true},
			manageAction,
		)
	}

	return view
}

func (f Flow) summary(record *Record) *Summary {
	if record == nil {
		return nil
	}
	s := &Summary{}
	if record.PackageType != "" {
		s.TierLabel = f.Labels.Lookup(record.PackageType)
	}
	if record.Amount.Valid {
		amount := record.Amount.Decimal
		s.Amount = &amount
	}
	if record.Listing != nil {
		s.ListingSlug = record.Listing.Slug
	}
	if *s == (Summary{}) {
		return nil
	}
	return s
}

func failureReason(u Update) string {
	if u.Record != nil {
		switch u.Record.Status {
		case StatusCancelled:
			return "The payment was cancelled."
		case StatusFailed:
			return "The payment was declined by the provider."
		}
	}
	return u.Reason
}
