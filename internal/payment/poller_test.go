package payment

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInterval = 20 * time.Millisecond

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchStatus(ctx context.Context, paymentID string) (Record, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(Record), args.Error(1)
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) callback(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) states() []UIState {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]UIState, 0, len(r.updates))
	for _, u := range r.updates {
		states = append(states, u.State)
	}
	return states
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poll session did not finish")
	}
}

// countingFetcher answers with statuses in order and repeats the last one.
func countingFetcher(calls *atomic.Int32, statuses ...Status) Fetcher {
	return FetcherFunc(func(ctx context.Context, paymentID string) (Record, error) {
		n := int(calls.Add(1))
		if n > len(statuses) {
			n = len(statuses)
		}
		return Record{ID: paymentID, Status: statuses[n-1]}, nil
	})
}

func TestPoller_MissingIdentifier(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}

	sub := NewPoller(countingFetcher(&calls, StatusPending), Options{Interval: testInterval}, discardLogger()).
		Start(context.Background(), "", rec.callback)
	waitDone(t, sub)

	assert.Equal(t, []UIState{StateFailed}, rec.states())
	assert.Equal(t, ReasonMissingIdentifier, rec.last().Reason)
	assert.Equal(t, int32(0), calls.Load())
}

func TestPoller_PendingPendingCompleted(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("FetchStatus", mock.Anything, "pay-1").Return(Record{ID: "pay-1", Status: StatusPending}, nil).Twice()
	fetcher.On("FetchStatus", mock.Anything, "pay-1").Return(Record{ID: "pay-1", Status: StatusCompleted}, nil).Once()

	rec := &recorder{}
	sub := NewPoller(fetcher, Options{Interval: testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	time.Sleep(3 * testInterval)

	assert.Equal(t, []UIState{StateLoading, StatePending, StatePending, StateSuccess}, rec.states())
	assert.True(t, rec.last().Final())
	assert.Equal(t, 3, rec.last().Attempt)
	fetcher.AssertNumberOfCalls(t, "FetchStatus", 3)
	fetcher.AssertExpectations(t)
}

func TestPoller_FirstFetchErrorIsPending(t *testing.T) {
	var mu sync.Mutex
	var callTimes []time.Time

	fetcher := FetcherFunc(func(ctx context.Context, paymentID string) (Record, error) {
		mu.Lock()
		callTimes = append(callTimes, time.Now())
		n := len(callTimes)
		mu.Unlock()

		if n == 1 {
			return Record{}, &FetchError{Reason: "payment service is unreachable", Err: errors.New("dial tcp: connection refused")}
		}
		return Record{ID: paymentID, Status: StatusCompleted}, nil
	})

	rec := &recorder{}
	sub := NewPoller(fetcher, Options{Interval: 3 * testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	assert.Equal(t, []UIState{StateLoading, StatePending, StateSuccess}, rec.states())

	rec.mu.Lock()
	errUpdate := rec.updates[1]
	rec.mu.Unlock()
	assert.Error(t, errUpdate.Err)
	assert.Equal(t, "payment service is unreachable", errUpdate.Reason)
	assert.False(t, errUpdate.Final())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, callTimes, 2)
	assert.GreaterOrEqual(t, callTimes[1].Sub(callTimes[0]), 3*testInterval-5*time.Millisecond)
}

func TestPoller_LaterErrorKeepsPreviousState(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("FetchStatus", mock.Anything, "pay-1").Return(Record{ID: "pay-1", Status: StatusPending, PackageType: "VIP"}, nil).Once()
	fetcher.On("FetchStatus", mock.Anything, "pay-1").Return(Record{}, errors.New("status 502")).Once()
	fetcher.On("FetchStatus", mock.Anything, "pay-1").Return(Record{ID: "pay-1", Status: StatusFailed}, nil).Once()

	rec := &recorder{}
	sub := NewPoller(fetcher, Options{Interval: testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	assert.Equal(t, []UIState{StateLoading, StatePending, StatePending, StateFailed}, rec.states())

	rec.mu.Lock()
	afterErr := rec.updates[2]
	rec.mu.Unlock()
	require.NotNil(t, afterErr.Record)
	assert.Equal(t, "VIP", afterErr.Record.PackageType)
	assert.Equal(t, "status 502", afterErr.Reason)

	last := rec.last()
	assert.NoError(t, last.Err)
	assert.Equal(t, StatusFailed, last.Record.Status)
	fetcher.AssertExpectations(t)
}

func TestPoller_NoFetchAfterTerminal(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			var calls atomic.Int32
			rec := &recorder{}

			sub := NewPoller(countingFetcher(&calls, status), Options{Interval: testInterval}, discardLogger()).
				Start(context.Background(), "pay-1", rec.callback)
			waitDone(t, sub)

			time.Sleep(5 * testInterval)

			assert.Equal(t, int32(1), calls.Load())
			assert.True(t, rec.last().State.Terminal())
			assert.Equal(t, 2, rec.count())
		})
	}
}

func TestPoller_StopCancelsTimer(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}

	sub := NewPoller(countingFetcher(&calls, StatusPending), Options{Interval: testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	sub.Stop()

	callsAtStop := calls.Load()
	updatesAtStop := rec.count()
	time.Sleep(5 * testInterval)

	assert.Equal(t, callsAtStop, calls.Load())
	assert.Equal(t, updatesAtStop, rec.count())
	assert.Equal(t, StatePending, rec.last().State)

	assert.NotPanics(t, sub.Stop)
}

func TestPoller_ParentContextCancelStops(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	sub := NewPoller(countingFetcher(&calls, StatusPending), Options{Interval: testInterval}, discardLogger()).
		Start(ctx, "pay-1", func(Update) {})
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	waitDone(t, sub)

	callsAtCancel := calls.Load()
	time.Sleep(3 * testInterval)
	assert.Equal(t, callsAtCancel, calls.Load())
}

func TestPoller_InFlightResultDiscardedAfterStop(t *testing.T) {
	started := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, paymentID string) (Record, error) {
		close(started)
		<-ctx.Done()
		return Record{ID: paymentID, Status: StatusCompleted}, nil
	})

	rec := &recorder{}
	sub := NewPoller(fetcher, Options{Interval: testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)

	<-started
	sub.Stop()

	assert.Equal(t, []UIState{StateLoading}, rec.states())
}

func TestPoller_MaxAttemptsCutoff(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}

	sub := NewPoller(countingFetcher(&calls, StatusPending), Options{Interval: testInterval, MaxAttempts: 3}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	time.Sleep(3 * testInterval)

	last := rec.last()
	assert.Equal(t, StatePending, last.State)
	assert.True(t, last.Expired)
	assert.True(t, last.Final())
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoller_MaxDurationCutoff(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}

	sub := NewPoller(countingFetcher(&calls, StatusPending), Options{Interval: testInterval, MaxDuration: 3 * testInterval}, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	assert.True(t, rec.last().Expired)
	assert.Equal(t, StatePending, rec.last().State)
}

func TestPoller_CustomClassifier(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}

	opts := Options{Interval: testInterval, MaxAttempts: 2, Classifier: ClassifyIgnoringFailed}
	sub := NewPoller(countingFetcher(&calls, StatusFailed), opts, discardLogger()).
		Start(context.Background(), "pay-1", rec.callback)
	waitDone(t, sub)

	assert.Equal(t, []UIState{StateLoading, StatePending, StatePending}, rec.states())
	assert.True(t, rec.last().Expired)
}

func TestPoller_Once(t *testing.T) {
	var calls atomic.Int32
	poller := NewPoller(countingFetcher(&calls, StatusCompleted), Options{}, discardLogger())

	u := poller.Once(context.Background(), "pay-1")
	assert.Equal(t, StateSuccess, u.State)
	assert.Equal(t, 1, u.Attempt)

	u = poller.Once(context.Background(), "")
	assert.Equal(t, StateFailed, u.State)
	assert.Equal(t, ReasonMissingIdentifier, u.Reason)
	assert.Equal(t, int32(1), calls.Load())

	failing := NewPoller(FetcherFunc(func(context.Context, string) (Record, error) {
		return Record{}, errors.New("boom")
	}), Options{}, discardLogger())
	u = failing.Once(context.Background(), "pay-1")
	assert.Equal(t, StatePending, u.State)
	assert.Equal(t, "boom", u.Reason)
}
