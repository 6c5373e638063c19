package api

import (
	"net/http"
	"strconv"

	"github.com/manojnerkar/viep/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.d.Payments.Checkout(r.Context(), callerID(r), req.PlanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "checkout created", res)
}

type verifyPaymentRequest struct {
	PaymentID        string `json:"payment_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewaySignature string `json:"gateway_signature"`
	PaymentMethod    string `json:"payment_method"`
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.d.Payments.Confirm(r.Context(), usecase.ConfirmInput{
		PaymentID:        req.PaymentID,
		UserID:           callerID(r),
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	msg := "payment verified"
	if res.Subscription == nil {
		msg = "payment already verified"
	}
	writeMessage(w, http.StatusOK, msg, res)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// decodeReason accepts an empty body.
func decodeReason(r *http.Request) (string, error) {
	if r.ContentLength == 0 {
		return "", nil
	}
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	return req.Reason, nil
}

func (s *Server) failPayment(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.d.Payments.Fail(r.Context(), chi.URLParam(r, "id"), callerID(r), reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "payment marked failed", p)
}

func (s *Server) myPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Payments.ListByUser(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) paymentInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.d.Invoices.GetForPayment(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) myInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Invoices.ListByUser(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) recentPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.d.Payments.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) refundPayment(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.d.Payments.Refund(r.Context(), chi.URLParam(r, "id"), reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "payment refunded", p)
}
