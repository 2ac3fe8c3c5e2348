package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"horsemarket-web/internal/payment"

	"github.com/gorilla/websocket"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPaymentStream(t *testing.T, env *testEnv, query string, header http.Header) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/payments?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) payment.View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view payment.View
	require.NoError(t, conn.ReadJSON(&view))
	return view
}

func TestPaymentStream_UntilTerminal(t *testing.T) {
	defer gock.Off()
	gock.New(apiURL).
		Get("/api/payments/status/pay-1").
		Times(1).
		Reply(200).
		JSON(map[string]any{"success": true, "data": map[string]any{"status": "PENDING"}})
	gock.New(apiURL).
		Get("/api/payments/status/pay-1").
		Reply(200).
		JSON(map[string]any{"success": true, "data": map[string]any{"status": "COMPLETED", "packageType": "BUNDLE_10"}})

	env := newTestEnv(t)
	conn := dialPaymentStream(t, env, "paymentId=pay-1&flow=credits", nil)

	var states []payment.UIState
	for i := 0; i < 3; i++ {
		states = append(states, readView(t, conn).State)
	}
	assert.Equal(t, []payment.UIState{payment.StateLoading, payment.StatePending, payment.StateSuccess}, states)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	assert.True(t, gock.IsDone())
}

func TestPaymentStream_MissingIdentifier(t *testing.T) {
	env := newTestEnv(t)
	conn := dialPaymentStream(t, env, "flow=publish&listingId=l1", nil)

	view := readView(t, conn)
	assert.Equal(t, payment.StateFailed, view.State)
	assert.Equal(t, payment.ReasonMissingIdentifier, view.Reason)
	assert.Equal(t, "/listings/l1/publish", view.Actions[0].Href)
}

func TestPaymentStream_ClientClose(t *testing.T) {
	defer gock.Off()
	gock.New(apiURL).
		Get("/api/payments/status/pay-5").
		Persist().
		Reply(200).
		JSON(map[string]any{"success": true, "data": map[string]any{"status": "PENDING"}})

	env := newTestEnv(t)
	conn := dialPaymentStream(t, env, "paymentId=pay-5&flow=listing", nil)

	assert.Equal(t, payment.StateLoading, readView(t, conn).State)
	assert.Equal(t, payment.StatePending, readView(t, conn).State)

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "navigated away")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
}

func TestPaymentStream_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/payments?paymentId=pay-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
