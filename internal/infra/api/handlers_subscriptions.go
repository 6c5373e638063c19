package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// subscriptionStatus returns data=null when the caller has no current entitlement.
func (s *Server) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	sub, err := s.d.Subscriptions.CurrentActive(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if sub == nil {
		writeMessage(w, http.StatusOK, "no active subscription", nil)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) mySubscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Subscriptions.ListByUser(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sub, err := s.d.Subscriptions.Cancel(r.Context(), chi.URLParam(r, "id"), callerID(r), reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "subscription cancelled", sub)
}
