package api

import (
	"net/http"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// verifyCertificate is public. Absent and revoked codes both answer 404.
func (s *Server) verifyCertificate(w http.ResponseWriter, r *http.Request) {
	if !s.allowVerify(r) {
		writeError(w, domain.ErrRateLimited)
		return
	}
	view, err := s.d.Certificates.VerifyPublic(r.Context(), chi.URLParam(r, "certificateId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "certificate is valid", view)
}

func (s *Server) myCertificates(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Certificates.ListByUser(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) myCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := s.d.Certificates.GetForOwner(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) downloadCertificate(w http.ResponseWriter, r *http.Request) {
	ref, err := s.d.Certificates.Download(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) issueCertificate(w http.ResponseWriter, r *http.Request) {
	var in model.IssueInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.d.Certificates.Issue(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "certificate issued", c)
}

func (s *Server) getCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := s.d.Certificates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) revokeCertificate(w http.ResponseWriter, r *http.Request) {
	reason, err := decodeReason(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.d.Certificates.Revoke(r.Context(), chi.URLParam(r, "id"), reason, callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "certificate revoked", c)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.d.Stats.Totals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
