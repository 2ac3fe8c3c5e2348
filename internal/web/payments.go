package web

import (
	"net/http"
	"net/url"
	"time"

	"horsemarket-web/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const wsWriteTimeout = 5 * time.Second

type resultQuery struct {
	PaymentID string `form:"paymentId"`
	Flow      string `form:"flow"`
	ListingID string `form:"listingId"`
}

func (s *Server) resolveFlow(c *gin.Context) (resultQuery, payment.Flow, bool) {
	var q resultQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "invalid query")
		return q, payment.Flow{}, false
	}
	if q.Flow == "" {
		q.Flow = string(payment.FlowListing)
	}
	flow, err := s.Payments.Flow(q.Flow)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return q, payment.Flow{}, false
	}
	return q, flow, true
}

// paymentResult renders a single snapshot of the payment.
func (s *Server) paymentResult(c *gin.Context) {
	q, flow, valid := s.resolveFlow(c)
	if !valid {
		return
	}
	u := s.Payments.Snapshot(c.Request.Context(), flow, q.PaymentID, credentials(c))
	ok(c, flow.Present(u, q.ListingID))
}

// paymentStream pushes a view for every poll update. Closing the socket stops polling.
func (s *Server) paymentStream(c *gin.Context) {
	q, flow, valid := s.resolveFlow(c)
	if !valid {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "Error upgrading payment stream", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := s.Payments.Watch(ctx, flow, q.PaymentID, credentials(c), func(u payment.Update) {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(flow.Present(u, q.ListingID)); err != nil {
			s.logger.WarnContext(ctx, "Error writing payment update", "error", err)
		}
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-closed:
		sub.Stop()
		s.logger.InfoContext(ctx, "Payment stream closed by client")
	case <-sub.Done():
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	for _, allowed := range s.Server.AllowedOrigin {
		if allowed == origin {
			return true
		}
	}
	return false
}

type bundleOption struct {
	Code  string          `json:"code"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

func (s *Server) bundles(c *gin.Context) {
	b, err := s.API.ListingBundles(c.Request.Context(), credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, []bundleOption{
		{Code: "BUNDLE_5", Label: s.Labels.Lookup("BUNDLE_5"), Price: b.Bundle5},
		{Code: "BUNDLE_10", Label: s.Labels.Lookup("BUNDLE_10"), Price: b.Bundle10},
		{Code: "BUNDLE_20", Label: s.Labels.Lookup("BUNDLE_20"), Price: b.Bundle20},
	})
}

type checkoutView struct {
	PaymentID  string `json:"paymentId"`
	PaymentURL string `json:"paymentUrl"`
	ResultURL  string `json:"resultUrl"`
}

func newCheckoutView(flow payment.FlowName, paymentID, paymentURL, listingID string) checkoutView {
	q := url.Values{}
	q.Set("paymentId", paymentID)
	q.Set("flow", string(flow))
	if listingID != "" {
		q.Set("listingId", listingID)
	}
	return checkoutView{PaymentID: paymentID, PaymentURL: paymentURL, ResultURL: "/payments/result?" + q.Encode()}
}

type checkoutListingRequest struct {
	PackageType string `json:"packageType" binding:"required"`
}

func (s *Server) checkoutListing(c *gin.Context) {
	var req checkoutListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "packageType is required")
		return
	}
	listingID := c.Param("listing")
	checkout, err := s.API.CheckoutListing(c.Request.Context(), listingID, req.PackageType, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, newCheckoutView(payment.FlowListing, checkout.PaymentID, checkout.PaymentURL, listingID))
}

func (s *Server) checkoutPublish(c *gin.Context) {
	listingID := c.Param("listing")
	checkout, err := s.API.CheckoutPublish(c.Request.Context(), listingID, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, newCheckoutView(payment.FlowPublish, checkout.PaymentID, checkout.PaymentURL, listingID))
}

var bundleCodes = map[string]string{
	"BUNDLE_5":  "bundle5",
	"BUNDLE_10": "bundle10",
	"BUNDLE_20": "bundle20",
}

type checkoutBundleRequest struct {
	Bundle string `json:"bundle" binding:"required"`
}

func (s *Server) checkoutBundle(c *gin.Context) {
	var req checkoutBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "bundle is required")
		return
	}
	bundle, known := bundleCodes[req.Bundle]
	if !known {
		abort(c, http.StatusBadRequest, "unknown bundle")
		return
	}
	checkout, err := s.API.CheckoutBundle(c.Request.Context(), bundle, credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, newCheckoutView(payment.FlowCredits, checkout.PaymentID, checkout.PaymentURL, ""))
}
