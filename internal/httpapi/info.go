package httpapi

import "net/http"

type infoResponse struct {
	PublicAddress string `json:"public_address"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{PublicAddress: s.services.PublicAddress})
}

func (s *Server) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}
