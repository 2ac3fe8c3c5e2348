package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"horsemarket-web/internal/logcontext"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

const (
	defaultIntervalMs = 3000

	ReasonMissingIdentifier = "missing identifier"
)

var (
	// per fetch metrics
	pollerFetchSuccessCounter   = metrics.GetOrCreateCounter(`payment_poller_fetch_total{result="success"}`)
	pollerFetchErrorCounter     = metrics.GetOrCreateCounter(`payment_poller_fetch_total{result="error"}`)
	pollerFetchDiscardedCounter = metrics.GetOrCreateCounter(`payment_poller_fetch_total{result="discarded"}`)

	pollerFetchDurationHistogram = metrics.GetOrCreateHistogram(`payment_poller_fetch_duration_milliseconds`)

	// per session metrics
	pollerSessionSuccessCounter   = metrics.GetOrCreateCounter(`payment_poller_sessions_total{outcome="success"}`)
	pollerSessionFailedCounter    = metrics.GetOrCreateCounter(`payment_poller_sessions_total{outcome="failed"}`)
	pollerSessionExpiredCounter   = metrics.GetOrCreateCounter(`payment_poller_sessions_total{outcome="expired"}`)
	pollerSessionStoppedCounter   = metrics.GetOrCreateCounter(`payment_poller_sessions_total{outcome="stopped"}`)
	pollerSessionMissingIDCounter = metrics.GetOrCreateCounter(`payment_poller_sessions_total{outcome="missing_id"}`)
)

// Update is one snapshot delivered to a subscriber.
type Update struct {
	PaymentID string
	State     UIState
	// Record is the last successfully fetched record, nil until one arrives.
	Record *Record
	// Reason is captured from the first failing fetch, or set for a missing identifier.
	Reason  string
	Attempt int
	// Expired is set when the attempt or duration cutoff ended the session while pending.
	Expired bool
	Err     error
}

// Final reports whether no further update follows this one.
func (u Update) Final() bool {
	return u.State.Terminal() || u.Expired
}

type Options struct {
	Interval time.Duration
	// MaxAttempts and MaxDuration bound the session; zero means unbounded.
	MaxAttempts int
	MaxDuration time.Duration
	Classifier  Classifier
}

type Poller struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
}

func NewPoller(fetcher Fetcher, opts Options, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultIntervalMs * time.Millisecond
	}
	if opts.Classifier == nil {
		opts.Classifier = Classify
	}
	return &Poller{fetcher: fetcher, opts: opts, logger: logger}
}

// Subscription is a running poll session.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the session and waits for it to exit. After Stop returns no
// fetch is issued and the callback is not invoked again. Stop must not be
// called from inside the callback.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the session has ended for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Start begins polling paymentID and invokes callback from a single goroutine
// for every state change: first loading, then one update per fetch until a
// final update. Callbacks are never concurrent.
func (p *Poller) Start(ctx context.Context, paymentID string, callback func(Update)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	ctx = logcontext.AppendCtx(ctx,
		slog.String("runId", uuid.New().String()),
		slog.String("paymentId", paymentID),
	)

	go func() {
		defer close(sub.done)
		defer cancel()
		p.run(ctx, paymentID, callback)
	}()

	return sub
}

func (p *Poller) run(ctx context.Context, paymentID string, callback func(Update)) {
	if ctx.Err() != nil {
		pollerSessionStoppedCounter.Inc()
		return
	}
	if paymentID == "" {
		p.logger.WarnContext(ctx, "Payment id missing, not polling")
		pollerSessionMissingIDCounter.Inc()
		callback(Update{State: StateFailed, Reason: ReasonMissingIdentifier})
		return
	}

	s := &session{paymentID: paymentID, state: StateLoading, startedAt: time.Now()}
	callback(s.update())

	p.logger.InfoContext(ctx, "Starting payment polling", "interval", p.opts.Interval.String())
	if p.tick(ctx, s, callback) {
		return
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.tick(ctx, s, callback) {
				return
			}
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Context done, stopping payment polling", "attempts", s.attempts)
			pollerSessionStoppedCounter.Inc()
			return
		}
	}
}

// Once performs a single fetch and classification without scheduling anything.
func (p *Poller) Once(ctx context.Context, paymentID string) Update {
	if paymentID == "" {
		return Update{State: StateFailed, Reason: ReasonMissingIdentifier}
	}
	s := &session{paymentID: paymentID, state: StateLoading, startedAt: time.Now()}
	p.apply(ctx, s)
	return s.update()
}

type session struct {
	paymentID string
	state     UIState
	record    *Record
	reason    string
	lastErr   error
	attempts  int
	expired   bool
	startedAt time.Time
}

func (s *session) update() Update {
	return Update{
		PaymentID: s.paymentID,
		State:     s.state,
		Record:    s.record,
		Reason:    s.reason,
		Attempt:   s.attempts,
		Expired:   s.expired,
		Err:       s.lastErr,
	}
}

// tick fetches once and reports whether the session is over.
func (p *Poller) tick(ctx context.Context, s *session, callback func(Update)) bool {
	if !p.apply(ctx, s) {
		p.logger.InfoContext(ctx, "Discarding result fetched after teardown")
		pollerFetchDiscardedCounter.Inc()
		pollerSessionStoppedCounter.Inc()
		return true
	}

	if s.state.Terminal() {
		callback(s.update())
		p.logger.InfoContext(ctx, "Payment reached terminal state", "state", s.state, "attempts", s.attempts)
		if s.state == StateSuccess {
			pollerSessionSuccessCounter.Inc()
		} else {
			pollerSessionFailedCounter.Inc()
		}
		return true
	}

	if p.cutoffReached(s) {
		s.expired = true
		callback(s.update())
		p.logger.WarnContext(ctx, "Payment still pending at cutoff", "attempts", s.attempts)
		pollerSessionExpiredCounter.Inc()
		return true
	}

	callback(s.update())
	return false
}

// apply runs one fetch and folds the result into s. It returns false when the
// context was cancelled while the fetch was in flight.
func (p *Poller) apply(ctx context.Context, s *session) bool {
	if ctx.Err() != nil {
		return false
	}
	startTime := time.Now()
	s.attempts++

	record, err := p.fetcher.FetchStatus(ctx, s.paymentID)
	pollerFetchDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))

	if ctx.Err() != nil {
		return false
	}

	if err != nil {
		p.logger.WarnContext(ctx, "Error fetching payment status", "error", err, "attempt", s.attempts)
		pollerFetchErrorCounter.Inc()

		s.lastErr = err
		if s.reason == "" {
			s.reason = Reason(err)
		}
		if s.state == StateLoading {
			s.state = StatePending
		}
		return true
	}

	pollerFetchSuccessCounter.Inc()
	s.lastErr = nil
	s.record = &record
	s.state = p.opts.Classifier(record.Status)
	p.logger.DebugContext(ctx, "Fetched payment status", "status", record.Status, "state", s.state)
	return true
}

func (p *Poller) cutoffReached(s *session) bool {
	if p.opts.MaxAttempts > 0 && s.attempts >= p.opts.MaxAttempts {
		return true
	}
	if p.opts.MaxDuration > 0 && time.Since(s.startedAt) >= p.opts.MaxDuration {
		return true
	}
	return false
}
