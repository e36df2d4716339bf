// Package coordinator ties the presence store, the signaling relay and the
// broadcaster together. It consumes client RPCs from the server-side bus
// and emits events on per-user client channels; it never blocks one
// client's progress on another's.
package coordinator

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
	"github.com/battala/voicemesh/internal/presence"
	"github.com/battala/voicemesh/internal/telemetry"
)

// Options is options of the coordinator.
type Options struct {
	Config          *config.Config
	EventsPublisher eventbus.Publisher
	Registry        *presence.Registry

	// History is optional; presence stays authoritative when it is nil.
	History core.SessionsDBStorer
}

type Coordinator struct {
	Options
	links *linkTable
}

func New(options Options) *Coordinator {
	if options.Registry == nil {
		options.Registry = presence.NewRegistry(options.Config.Voice.MaxRoomSize)
	}

	return &Coordinator{
		Options: options,
		links:   newLinkTable(),
	}
}

// Register wires the coordinator's handlers into the RPC router.
func (c *Coordinator) Register(router *eventbus.Router) {
	router.OnJoin(c.HandleJoin)
	router.OnLeave(c.HandleLeave)
	router.OnOffer(c.HandleOffer)
	router.OnAnswer(c.HandleAnswer)
	router.OnAddICECandidate(c.HandleICECandidate)
	router.OnVoiceState(c.HandleVoiceState)
	router.OnSpeaking(c.HandleSpeaking)
	router.OnLinkState(c.HandleLinkState)
}

// HandleJoin runs the full join flow: implicit teardown of the prior
// session, room bootstrap for the newcomer, join announcement to the
// existing occupants (who then start offering toward the newcomer).
func (c *Coordinator) HandleJoin(userID core.UserID, channelID core.ChannelID) error {
	result, err := c.Registry.Join(userID, channelID)
	if err == presence.ErrRoomFull {
		log.Debug().Str("service", "coordinator").
			Str("userID", string(userID)).Str("channelID", string(channelID)).
			Msg("join rejected, room is full")

		return c.EventsPublisher.PublishClient(userID, rpc.NewErrorRpc("room is full"))
	}
	if err != nil {
		return err
	}

	if result.Prior != nil {
		c.teardown(result.Prior)
	}

	c.saveHistory(result.Session)

	if err := c.EventsPublisher.PublishClient(userID, rpc.NewRoomJoinedRpc(rpc.RoomJoinedParams{
		ChannelID:  channelID,
		Occupants:  result.Existing,
		ICEServers: c.Config.Voice.ICEServers,
	})); err != nil {
		log.Error().Err(err).Str("service", "coordinator").Msg("publish room_joined")
	}

	c.broadcast(result.Existing, userID, rpc.NewUserJoinedRpc(result.Session), string(rpc.UserJoinedEvent))

	telemetry.SessionJoined()
	if len(result.Existing) == 0 {
		telemetry.RoomOpened()
	}

	log.Info().Str("service", "coordinator").
		Str("userID", string(userID)).Str("channelID", string(channelID)).
		Int("occupants", len(result.Existing)+1).
		Msg("user joined voice channel")

	return nil
}

// HandleLeave ends the user's session. Leaving without one is a no-op:
// membership races are expected, not errors.
func (c *Coordinator) HandleLeave(userID core.UserID) error {
	result, ok := c.Registry.Leave(userID)
	if !ok {
		return nil
	}

	c.teardown(result)

	log.Info().Str("service", "coordinator").
		Str("userID", string(userID)).Str("channelID", string(result.Session.ChannelID)).
		Msg("user left voice channel")

	return nil
}

// teardown closes the departed user's links, tells the remaining occupants
// and closes the history row.
func (c *Coordinator) teardown(result *presence.LeaveResult) {
	session := result.Session

	c.links.closeFor(session.ChannelID, session.UserID)
	c.broadcast(result.Remaining, session.UserID,
		rpc.NewUserLeftRpc(session.UserID, session.ChannelID), string(rpc.UserLeftEvent))

	if c.History != nil {
		if err := c.History.CloseActive(session.UserID, time.Now().UTC()); err != nil {
			log.Error().Err(err).Str("service", "coordinator").Msg("close history row")
		}
	}

	telemetry.SessionLeft()
	if len(result.Remaining) == 0 {
		telemetry.RoomClosed()
	}
}

// HandleOffer relays an offer and tracks the pair's link. The payload is
// forwarded untouched.
func (c *Coordinator) HandleOffer(userID core.UserID, params rpc.SDPParams) error {
	channelID, ok := c.relayAddress(userID, params.Target, string(rpc.SDPOfferMethod))
	if !ok {
		return nil
	}

	c.links.offer(channelID, userID, params.Target)

	params.From = userID
	return c.relayDeliver(params.Target, rpc.NewSDPOfferRpc(params), string(rpc.SDPOfferMethod))
}

func (c *Coordinator) HandleAnswer(userID core.UserID, params rpc.SDPParams) error {
	channelID, ok := c.relayAddress(userID, params.Target, string(rpc.SDPAnswerMethod))
	if !ok {
		return nil
	}

	c.links.answer(channelID, userID, params.Target)

	params.From = userID
	return c.relayDeliver(params.Target, rpc.NewSDPAnswerRpc(params), string(rpc.SDPAnswerMethod))
}

func (c *Coordinator) HandleICECandidate(userID core.UserID, params rpc.ICECandidateParams) error {
	_, ok := c.relayAddress(userID, params.Target, string(rpc.ICECandidateMethod))
	if !ok {
		return nil
	}

	params.From = userID
	return c.relayDeliver(params.Target, rpc.NewICECandidateRpc(params), string(rpc.ICECandidateMethod))
}

// relayAddress checks that sender and target share a room right now. A
// departed end means the message is dropped silently: the link is being
// torn down anyway.
func (c *Coordinator) relayAddress(from, target core.UserID, kind string) (core.ChannelID, bool) {
	channelID, ok := c.Registry.CurrentChannel(from)
	if !ok || !c.Registry.InRoom(channelID, target) {
		telemetry.RelayDropped(kind)
		log.Debug().Str("service", "coordinator").
			Str("from", string(from)).Str("target", string(target)).Str("kind", kind).
			Msg("relay dropped")

		return "", false
	}

	return channelID, true
}

func (c *Coordinator) relayDeliver(target core.UserID, r rpc.Rpc, kind string) error {
	if err := c.EventsPublisher.PublishClient(target, r); err != nil {
		return err
	}

	telemetry.RelayDelivered(kind)
	return nil
}

// HandleVoiceState applies a self-report and broadcasts the resulting
// state. Flags under a moderation override keep their forced value, so a
// fully swallowed report broadcasts nothing.
func (c *Coordinator) HandleVoiceState(userID core.UserID, params rpc.VoiceStateParams) error {
	session, changed := c.Registry.ApplySelfState(userID, params.IsMuted, params.IsDeafened, params.IsScreenSharing)
	if !changed {
		return nil
	}

	c.broadcast(c.Registry.Occupants(session.ChannelID), userID,
		rpc.NewVoiceStateChangedRpc(userID, session.ChannelID, session.State),
		string(rpc.VoiceStateChangedEvent))

	return nil
}

// HandleSpeaking forwards speaking edges only; repeats are dropped at the
// source of truth so the room is not flooded.
func (c *Coordinator) HandleSpeaking(userID core.UserID, speaking bool) error {
	channelID, edge := c.Registry.SetSpeaking(userID, speaking)
	if !edge {
		return nil
	}

	c.broadcast(c.Registry.Occupants(channelID), userID,
		rpc.NewSpeakingChangedRpc(userID, speaking), string(rpc.SpeakingChangedEvent))

	return nil
}

// HandleLinkState records a peer's own report of a link outcome.
func (c *Coordinator) HandleLinkState(userID core.UserID, params rpc.LinkStateParams) error {
	channelID, ok := c.Registry.CurrentChannel(userID)
	if !ok {
		return nil
	}

	c.links.report(channelID, userID, params.Target, params.State == rpc.LinkConnected)

	return nil
}

// Link exposes a pair's negotiation state for the query surface and tests.
func (c *Coordinator) Link(channelID core.ChannelID, a, b core.UserID) (PeerLink, bool) {
	return c.links.get(channelID, a, b)
}

// broadcast delivers an event to every listed occupant except the origin.
func (c *Coordinator) broadcast(occupants []*core.VoiceSession, exclude core.UserID, r rpc.Rpc, event string) {
	for _, occupant := range occupants {
		if occupant.UserID == exclude {
			continue
		}
		if err := c.EventsPublisher.PublishClient(occupant.UserID, r); err != nil {
			log.Error().Err(err).Str("service", "coordinator").
				Str("userID", string(occupant.UserID)).Str("event", event).
				Msg("broadcast")
			continue
		}
		telemetry.BroadcastSent(event)
	}
}

func (c *Coordinator) saveHistory(session *core.VoiceSession) {
	if c.History == nil {
		return
	}
	if err := c.History.SaveJoin(session); err != nil {
		log.Error().Err(err).Str("service", "coordinator").Msg("save history row")
	}
}
