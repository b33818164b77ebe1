package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wallet-dashboard/internal/service"
)

// quoteRequest is the body of a transfer quote. The sender comes from the path.
type quoteRequest struct {
	To      string `json:"to"`
	Value   string `json:"value"`
	Network string `json:"network"`
}

// handleQuoteTransfer handles POST /api/wallets/{address}/transfers/quote
func (s *Server) handleQuoteTransfer(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	network := req.Network
	if network == "" {
		network = r.URL.Query().Get("network")
	}

	quote, err := s.transferService.Quote(r.Context(), service.TransferRequest{
		From:    mux.Vars(r)["address"],
		To:      req.To,
		Value:   req.Value,
		Network: network,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}
