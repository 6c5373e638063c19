package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/manojnerkar/viep/internal/domain"
)

// envelope is the body shape of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: msg, Data: data})
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidStateTransition, domain.KindDuplicateKey:
		return http.StatusConflict
	case domain.KindGatewayVerification:
		return http.StatusPaymentRequired
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its stable kind. Internal failures never leak detail.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(kind))
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: msg, Kind: kind})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: msg, Kind: "unauthorized"})
}

// decodeJSON reads a JSON body into dst; malformed or unknown fields are a validation error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.ErrValidation
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
