package dashboard

import (
	"context"
	"log/slog"
	"time"

	"horsemarket-web/internal/api"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type StatsAPI interface {
	UserStats(ctx context.Context, creds api.Credentials) (*api.UserStats, error)
	ListingStats(ctx context.Context, creds api.Credentials) (*api.ListingStats, error)
	PaymentStats(ctx context.Context, creds api.Credentials) (*api.PaymentStats, error)
}

type Dashboard struct {
	Users          api.UserStats    `json:"users"`
	Listings       api.ListingStats `json:"listings"`
	Payments       api.PaymentStats `json:"payments"`
	CompletionRate decimal.Decimal  `json:"completionRate"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

type Service struct {
	api    StatsAPI
	logger *slog.Logger
}

func NewService(client StatsAPI, logger *slog.Logger) *Service {
	return &Service{api: client, logger: logger}
}

// Build fetches every statistic concurrently; the first failure cancels the rest.
func (s *Service) Build(ctx context.Context, creds api.Credentials) (*Dashboard, error) {
	var (
		users    *api.UserStats
		listings *api.ListingStats
		payments *api.PaymentStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.api.UserStats(gctx, creds)
		return errors.Wrap(err, "user stats")
	})
	g.Go(func() error {
		var err error
		listings, err = s.api.ListingStats(gctx, creds)
		return errors.Wrap(err, "listing stats")
	})
	g.Go(func() error {
		var err error
		payments, err = s.api.PaymentStats(gctx, creds)
		return errors.Wrap(err, "payment stats")
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Error building admin dashboard", "error", err)
		return nil, err
	}

	d := &Dashboard{
		Users:       *users,
		Listings:    *listings,
		Payments:    *payments,
		GeneratedAt: time.Now().UTC(),
	}
	if payments.Total > 0 {
		d.CompletionRate = decimal.NewFromInt(int64(payments.Completed)).
			Div(decimal.NewFromInt(int64(payments.Total))).
			Round(4)
	}
	return d, nil
}
