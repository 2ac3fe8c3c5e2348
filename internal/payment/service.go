package payment

import (
	"context"
	"log/slog"
	"time"

	"horsemarket-web/internal/api"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrUnknownFlow = errors.New("unknown payment flow")

// Outcome is emitted whenever a terminal payment state is observed. The same
// payment may be reported more than once.
type Outcome struct {
	PaymentID   string              `json:"paymentId"`
	Flow        FlowName            `json:"flow"`
	State       UIState             `json:"state"`
	Status      Status              `json:"status"`
	Amount      decimal.NullDecimal `json:"amount"`
	PackageType string              `json:"packageType,omitempty"`
	ListingSlug string              `json:"listingSlug,omitempty"`
	ObservedAt  time.Time           `json:"observedAt"`
}

type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome Outcome) error
}

type Service struct {
	client    StatusClient
	flows     map[FlowName]Flow
	publisher OutcomePublisher
	logger    *slog.Logger
}

// NewService wires the poller to the API. publisher may be nil.
func NewService(client StatusClient, flows map[FlowName]Flow, publisher OutcomePublisher, logger *slog.Logger) *Service {
	return &Service{client: client, flows: flows, publisher: publisher, logger: logger}
}

func (s *Service) Flow(name string) (Flow, error) {
	flow, ok := s.flows[FlowName(name)]
	if !ok {
		return Flow{}, errors.Wrapf(ErrUnknownFlow, "flow %q", name)
	}
	return flow, nil
}

func (s *Service) poller(flow Flow, creds api.Credentials) *Poller {
	return NewPoller(NewAPIFetcher(s.client, creds, flow.Authenticated), flow.Options, s.logger)
}

// Watch polls paymentID until a final update or until the subscription is stopped.
func (s *Service) Watch(ctx context.Context, flow Flow, paymentID string, creds api.Credentials, callback func(Update)) *Subscription {
	return s.poller(flow, creds).Start(ctx, paymentID, func(u Update) {
		callback(u)
		if u.State.Terminal() {
			s.publish(ctx, flow, u)
		}
	})
}

// Snapshot performs a single fetch and classification.
func (s *Service) Snapshot(ctx context.Context, flow Flow, paymentID string, creds api.Credentials) Update {
	u := s.poller(flow, creds).Once(ctx, paymentID)
	if u.State.Terminal() {
		s.publish(ctx, flow, u)
	}
	return u
}

func (s *Service) publish(ctx context.Context, flow Flow, u Update) {
	if s.publisher == nil || u.Record == nil {
		return
	}

	outcome := Outcome{
		PaymentID:   u.PaymentID,
		Flow:        flow.Name,
		State:       u.State,
		Status:      u.Record.Status,
		Amount:      u.Record.Amount,
		PackageType: u.Record.PackageType,
		ObservedAt:  time.Now().UTC(),
	}
	if u.Record.Listing != nil {
		outcome.ListingSlug = u.Record.Listing.Slug
	}

	if err := s.publisher.PublishOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		s.logger.ErrorContext(ctx, "Error publishing payment outcome", "error", err, "paymentId", u.PaymentID)
	}
}
