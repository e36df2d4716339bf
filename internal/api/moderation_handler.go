package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/coordinator"
	"github.com/battala/voicemesh/internal/core"
)

// ModerationRoutes exposes privileged room commands. Permission checks
// happen at the auth edge; whoever reaches these endpoints is trusted.
func ModerationRoutes(c *coordinator.Coordinator) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/mute/{userID}", moderationHandler(func(channelID core.ChannelID, userID core.UserID) error {
			return c.ServerMute(channelID, userID, true)
		}))
		r.Post("/unmute/{userID}", moderationHandler(func(channelID core.ChannelID, userID core.UserID) error {
			return c.ServerMute(channelID, userID, false)
		}))
		r.Post("/deafen/{userID}", moderationHandler(func(channelID core.ChannelID, userID core.UserID) error {
			return c.ServerDeafen(channelID, userID, true)
		}))
		r.Post("/undeafen/{userID}", moderationHandler(func(channelID core.ChannelID, userID core.UserID) error {
			return c.ServerDeafen(channelID, userID, false)
		}))
		r.Post("/disconnect/{userID}", moderationHandler(c.ForceDisconnect))
		r.Post("/kick/{userID}", moderationHandler(c.Kick))
	}
}

func moderationHandler(command func(channelID core.ChannelID, userID core.UserID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := core.ChannelID(chi.URLParam(r, "channelID"))
		userID := core.UserID(chi.URLParam(r, "userID"))
		if channelID == "" || userID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err := command(channelID, userID); err != nil {
			log.Error().Err(err).
				Str("service", "api").
				Str("channelID", string(channelID)).
				Str("userID", string(userID)).
				Msg("moderation command failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		// commands against an absent target are still a success
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]bool{"success": true}); err != nil {
			log.Error().Err(err).Str("service", "api").Msg("encode moderation response")
		}
	}
}
