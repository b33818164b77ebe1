package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wallet-dashboard/internal/service"
	"github.com/wallet-dashboard/internal/types"
)

// handleListNetworks handles GET /api/networks
func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	def, _ := types.LookupNetwork(s.config.DefaultNetwork)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"networks": types.Networks(),
		"default":  def.Key,
	})
}

// handleGetBalance handles GET /api/wallets/{address}/balance
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	view, err := s.walletService.GetWalletBalance(r.Context(), address, r.URL.Query().Get("network"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleGetHoldings handles GET /api/wallets/{address}/holdings?sort=&order=
func (s *Server) handleGetHoldings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := service.HoldingsInput{
		Address:   mux.Vars(r)["address"],
		Network:   query.Get("network"),
		SortField: query.Get("sort"),
		Direction: query.Get("order"),
	}

	view, err := s.walletService.GetHoldings(r.Context(), input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleGetActivity handles GET /api/wallets/{address}/activity
func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	view, err := s.activityService.GetActivity(r.Context(), address, r.URL.Query().Get("network"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
