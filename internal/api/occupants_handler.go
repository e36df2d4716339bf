package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/coordinator"
	"github.com/battala/voicemesh/internal/core"
)

// OccupantsHandler serves the channel's current voice roster in join order.
func OccupantsHandler(c *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := core.ChannelID(chi.URLParam(r, "channelID"))
		if channelID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		occupants := c.Registry.Occupants(channelID)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(occupants); err != nil {
			log.Error().Err(err).Str("service", "api").Msg("encode occupants")
		}
	}
}

// ICEServersHandler hands out the STUN/TURN bootstrap list. Clients that
// reconnect mid-session refresh it here instead of rejoining.
func ICEServersHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(cfg.Voice.ICEServers); err != nil {
			log.Error().Err(err).Str("service", "api").Msg("encode ice servers")
		}
	}
}
