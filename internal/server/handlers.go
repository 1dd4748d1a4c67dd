package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lotboard/lotboard/internal/auction"
	"github.com/lotboard/lotboard/internal/engine"
)

// participantCookie carries the stable per-browser participant ID.
const participantCookie = "lotboard_pid"

// identify resolves the caller's participant identity. An explicit
// participant_id from the request wins, so several people behind one
// browser can act as themselves. Otherwise the cookie ID is used,
// minting and setting a fresh UUID when absent. The display name comes
// from the request payload, not the cookie.
func identify(w http.ResponseWriter, r *http.Request, override, name string) auction.Participant {
	if override != "" {
		return auction.Participant{ID: override, Name: name}
	}

	id := ""
	if c, err := r.Cookie(participantCookie); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     participantCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return auction.Participant{ID: id, Name: name}
}

type stateResponse struct {
	auction.Snapshot
	Increments []int64 `json:"increments"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	viewer := identify(w, r, q.Get("participant_id"), q.Get("name"))

	snap := s.engine.ReadState(r.Context(), viewer)
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:   snap,
		Increments: s.engine.Increments(),
	})
}

type startRoundRequest struct {
	Item          string `json:"item"`
	Metadata      string `json:"metadata"`
	StartPrice    int64  `json:"start_price"`
	Name          string `json:"name"`
	ParticipantID string `json:"participant_id"`
}

type startRoundResponse struct {
	RoundID int64 `json:"round_id"`
	Seq     int64 `json:"seq"`
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req startRoundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	initiator := identify(w, r, req.ParticipantID, req.Name)

	res, err := s.engine.StartRound(r.Context(), engine.StartRoundRequest{
		Item:       req.Item,
		Metadata:   req.Metadata,
		StartPrice: req.StartPrice,
		Initiator:  initiator,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startRoundResponse{RoundID: res.RoundID, Seq: res.Seq})
}

type bidRequest struct {
	Delta         int64  `json:"delta"`
	RoundID       int64  `json:"round_id"`
	Name          string `json:"name"`
	ParticipantID string `json:"participant_id"`
}

type bidResponse struct {
	Seq    int64 `json:"seq"`
	Amount int64 `json:"amount"`
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bidder := identify(w, r, req.ParticipantID, req.Name)

	res, err := s.engine.PlaceBid(r.Context(), engine.BidRequest{
		Delta:   req.Delta,
		RoundID: req.RoundID,
		Bidder:  bidder,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bidResponse{Seq: res.Seq, Amount: res.Amount})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps auction validation errors onto HTTP statuses:
// conflicts about round lifecycle are 409, bad input is 400, anything
// else is an internal error.
func writeError(w http.ResponseWriter, err error) {
	var ae *auction.Error
	if !errors.As(err, &ae) {
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorBody{Code: "INTERNAL", Message: "internal error"},
		})
		return
	}

	status := http.StatusBadRequest
	switch ae.Code {
	case auction.ErrCodeRoundAlreadyActive,
		auction.ErrCodeNoActiveRound,
		auction.ErrCodeRoundMismatch:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{
		Error: errorBody{Code: string(ae.Code), Message: ae.Message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Code: "BAD_REQUEST", Message: "malformed JSON body"},
		})
		return false
	}
	return true
}
