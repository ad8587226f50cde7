package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"

	"claimcheck/internal/api"
	"claimcheck/internal/claims"
)

func (s *apiServer) handleListClaims(w http.ResponseWriter, r *http.Request) {
	rows, err := s.daemon.claimSvc.ListClaims(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, claims.MsgNoClaims)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *apiServer) handleClaimIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.daemon.claimSvc.ClaimIDs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, claims.MsgNoClaims)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *apiServer) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.claimSvc.Claim(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, claims.MsgClaimNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body api.StatusUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Request body must be JSON with a status field.")
		return
	}
	if _, err := s.daemon.claimSvc.UpdateStatus(r.Context(), r.PathValue("id"), body.Status); err != nil {
		s.writeServiceError(w, r, err, claims.MsgClaimNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Status updated successfully."})
}

func (s *apiServer) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.claimSvc.DeleteClaim(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, claims.MsgClaimNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		api.DeleteResult
		Message string `json:"message"`
	}{
		DeleteResult: result,
		Message:      fmt.Sprintf("Folder and all related records with Claim ID %s deleted successfully.", result.ClaimID),
	})
}
