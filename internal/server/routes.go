package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// messageRequest is the REST chat envelope.
type messageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// messageResponse carries the engine's single reply.
type messageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	reply := s.engine.HandleMessage(r.Context(), req.SessionID, req.Text)
	writeJSON(w, http.StatusOK, messageResponse{SessionID: req.SessionID, Reply: reply})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if s.leadStore == nil {
		writeError(w, http.StatusNotFound, "lead store not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	flowID := r.URL.Query().Get("flow")

	list, err := s.leadStore.List(r.Context(), flowID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing leads: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": list, "count": len(list)})
}
