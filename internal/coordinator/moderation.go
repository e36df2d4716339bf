package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

// Moderation commands arrive with the permission verdict already made by
// the authorization layer. The coordinator only checks existence: commands
// against an absent session are no-ops, never errors.

// ServerMute forces (or clears) the target's mute flag. The target gets the
// override pushed directly and must apply it over its own toggle; the room
// sees an ordinary state change.
func (c *Coordinator) ServerMute(channelID core.ChannelID, targetID core.UserID, value bool) error {
	session, ok := c.Registry.ForceMute(channelID, targetID, value)
	if !ok {
		return nil
	}

	if err := c.EventsPublisher.PublishClient(targetID, rpc.NewServerMuteRpc(value)); err != nil {
		log.Error().Err(err).Str("service", "moderation").Msg("push server_mute")
	}

	c.broadcast(c.Registry.Occupants(channelID), targetID,
		rpc.NewVoiceStateChangedRpc(targetID, channelID, session.State),
		string(rpc.VoiceStateChangedEvent))

	log.Info().Str("service", "moderation").
		Str("targetID", string(targetID)).Str("channelID", string(channelID)).Bool("muted", value).
		Msg("server mute")

	return nil
}

// ServerDeafen is the deafen counterpart of ServerMute.
func (c *Coordinator) ServerDeafen(channelID core.ChannelID, targetID core.UserID, value bool) error {
	session, ok := c.Registry.ForceDeafen(channelID, targetID, value)
	if !ok {
		return nil
	}

	if err := c.EventsPublisher.PublishClient(targetID, rpc.NewServerDeafenRpc(value)); err != nil {
		log.Error().Err(err).Str("service", "moderation").Msg("push server_deafen")
	}

	c.broadcast(c.Registry.Occupants(channelID), targetID,
		rpc.NewVoiceStateChangedRpc(targetID, channelID, session.State),
		string(rpc.VoiceStateChangedEvent))

	log.Info().Str("service", "moderation").
		Str("targetID", string(targetID)).Str("channelID", string(channelID)).Bool("deafened", value).
		Msg("server deafen")

	return nil
}

// ForceDisconnect ends the target's session like a leave, plus a dedicated
// push so the target tears down its own media instead of waiting to hear it
// from peers.
func (c *Coordinator) ForceDisconnect(channelID core.ChannelID, targetID core.UserID) error {
	return c.evict(channelID, targetID, rpc.ReasonDisconnected)
}

// Kick is a force-disconnect with the kick reason attached; membership
// removal beyond voice is the caller's business.
func (c *Coordinator) Kick(channelID core.ChannelID, targetID core.UserID) error {
	return c.evict(channelID, targetID, rpc.ReasonKicked)
}

func (c *Coordinator) evict(channelID core.ChannelID, targetID core.UserID, reason rpc.DisconnectReason) error {
	result, ok := c.Registry.LeaveChannel(targetID, channelID)
	if !ok {
		return nil
	}

	c.teardown(result)

	// exactly one push to the target itself
	if err := c.EventsPublisher.PublishClient(targetID, rpc.NewForceDisconnectedRpc(channelID, reason)); err != nil {
		log.Error().Err(err).Str("service", "moderation").Msg("push force_disconnected")
	}

	log.Info().Str("service", "moderation").
		Str("targetID", string(targetID)).Str("channelID", string(channelID)).Str("reason", string(reason)).
		Msg("forced disconnect")

	return nil
}
