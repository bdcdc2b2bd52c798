package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
	blinkbridge "github.com/nerrad567/gray-logic-blink/internal/bridges/blink"
)

// sourceAPI tags commands and audit entries that came through HTTP.
const sourceAPI = "api"

// networkResponse is one entry of GET /networks.
type networkResponse struct {
	Index    int    `json:"index"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Armed    bool   `json:"armed"`
	TimeZone string `json:"time_zone,omitempty"`
}

// networkListResponse is the body of GET /networks and POST /refresh.
type networkListResponse struct {
	Networks    []networkResponse `json:"networks"`
	Count       int               `json:"count"`
	RefreshedAt string            `json:"refreshed_at,omitempty"`
}

func (s *Server) networkList(networks []blinkapi.Network) networkListResponse {
	resp := networkListResponse{
		Networks: make([]networkResponse, 0, len(networks)),
		Count:    len(networks),
	}
	for i, n := range networks {
		resp.Networks = append(resp.Networks, networkResponse{
			Index:    i,
			ID:       n.ID,
			Name:     n.Name,
			Armed:    n.Armed,
			TimeZone: n.TimeZone,
		})
	}
	if last := s.bridge.LastRefresh(); !last.IsZero() {
		resp.RefreshedAt = last.UTC().Format(time.RFC3339)
	}
	return resp
}

// handleListNetworks returns the networks of the current snapshot.
// Positions in the list are the indices accepted by arm/disarm.
func (s *Server) handleListNetworks(w http.ResponseWriter, _ *http.Request) {
	networks, err := s.bridge.Networks()
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.networkList(networks))
}

// handleRefresh re-fetches the home screen and returns the new network list.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	networks, err := s.bridge.Refresh(ctx)
	if err != nil {
		s.logger.Warn("refresh via API failed", "error", err)
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.networkList(networks))
}

// handleArmNetwork arms the network at {index}.
func (s *Server) handleArmNetwork(w http.ResponseWriter, r *http.Request) {
	s.handleNetworkCommand(w, r, blinkbridge.CommandArm)
}

// handleDisarmNetwork disarms the network at {index}.
func (s *Server) handleDisarmNetwork(w http.ResponseWriter, r *http.Request) {
	s.handleNetworkCommand(w, r, blinkbridge.CommandDisarm)
}

// handleNetworkCommand runs command against the network at {index}.
// The bridge audits and broadcasts the outcome.
func (s *Server) handleNetworkCommand(w http.ResponseWriter, r *http.Request, command string) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "network index must be an integer")
		return
	}

	var userID string
	if claims := claimsFromContext(r.Context()); claims != nil {
		userID = claims.Subject
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	result, err := s.bridge.Command(ctx, index, command, sourceAPI, userID)
	if err != nil {
		writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":           blinkbridge.AckAccepted,
		"command":          result.Command,
		"index":            result.Index,
		"network_id":       result.NetworkID,
		"network_name":     result.NetworkName,
		"blink_command_id": result.CommandID,
	})
}
