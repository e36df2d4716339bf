package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus/rpc"
)

// RecordingPublisher captures everything published to client channels,
// keyed by recipient.
type RecordingPublisher struct {
	Client map[core.UserID][]rpc.Rpc
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{Client: make(map[core.UserID][]rpc.Rpc)}
}

func (p *RecordingPublisher) PublishClient(userID core.UserID, r rpc.Rpc) error {
	p.Client[userID] = append(p.Client[userID], r)
	return nil
}

func (p *RecordingPublisher) PublishServer(userID core.UserID, r rpc.Rpc) error {
	return nil
}

func (p *RecordingPublisher) byMethod(userID core.UserID, method rpc.Method) []rpc.Rpc {
	out := []rpc.Rpc{}
	for _, r := range p.Client[userID] {
		if r.GetMethod() == method {
			out = append(out, r)
		}
	}
	return out
}

func (p *RecordingPublisher) reset() {
	p.Client = make(map[core.UserID][]rpc.Rpc)
}

func newTestCoordinator(maxRoomSize int) (*Coordinator, *RecordingPublisher) {
	publisher := NewRecordingPublisher()

	cfg := &config.Config{
		Voice: config.VoiceConfig{
			MaxRoomSize: maxRoomSize,
			ICEServers:  []config.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}},
		},
	}

	c := New(Options{
		Config:          cfg,
		EventsPublisher: publisher,
	})

	return c, publisher
}

func TestJoinBootstrapsNewcomerAndAnnounces(t *testing.T) {
	c, publisher := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))

	joined := publisher.byMethod("a", rpc.RoomJoinedEvent)
	require.Len(t, joined, 1)
	params := joined[0].(*rpc.RoomJoinedRpc).Params
	assert.Empty(t, params.Occupants)
	require.Len(t, params.ICEServers, 1)
	assert.Equal(t, "stun:stun.example.org:3478", params.ICEServers[0].URLs[0])

	require.NoError(t, c.HandleJoin("b", "v1"))

	// the existing occupant is told, the newcomer is not told about itself
	userJoined := publisher.byMethod("a", rpc.UserJoinedEvent)
	require.Len(t, userJoined, 1)
	assert.Equal(t, core.UserID("b"), userJoined[0].(*rpc.UserJoinedRpc).Params.UserID)
	assert.Empty(t, publisher.byMethod("b", rpc.UserJoinedEvent))

	// the newcomer sees the existing occupant in its bootstrap
	joined = publisher.byMethod("b", rpc.RoomJoinedEvent)
	require.Len(t, joined, 1)
	occupants := joined[0].(*rpc.RoomJoinedRpc).Params.Occupants
	require.Len(t, occupants, 1)
	assert.Equal(t, core.UserID("a"), occupants[0].UserID)
}

func TestJoinFullRoomGetsError(t *testing.T) {
	c, publisher := newTestCoordinator(1)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))

	assert.Len(t, publisher.byMethod("b", rpc.ErrorEvent), 1)
	assert.Empty(t, publisher.byMethod("b", rpc.RoomJoinedEvent))
	assert.False(t, c.Registry.InRoom("v1", "b"))
}

func TestChannelSwitchAnnouncesLeaveToOldRoom(t *testing.T) {
	c, publisher := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))
	publisher.reset()

	require.NoError(t, c.HandleJoin("a", "v2"))

	left := publisher.byMethod("b", rpc.UserLeftEvent)
	require.Len(t, left, 1)
	assert.Equal(t, core.UserID("a"), left[0].(*rpc.UserLeftRpc).Params.UserID)
	assert.Equal(t, core.ChannelID("v1"), left[0].(*rpc.UserLeftRpc).Params.ChannelID)
}

func TestRelayAddressing(t *testing.T) {
	c, publisher := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))
	require.NoError(t, c.HandleJoin("x", "v2"))
	publisher.reset()

	// same room: delivered, tagged with the sender
	require.NoError(t, c.HandleOffer("a", rpc.SDPParams{Target: "b"}))
	offers := publisher.byMethod("b", rpc.SDPOfferMethod)
	require.Len(t, offers, 1)
	assert.Equal(t, core.UserID("a"), offers[0].(*rpc.SDPRpc).Params.From)

	// different room: dropped silently
	require.NoError(t, c.HandleOffer("a", rpc.SDPParams{Target: "x"}))
	assert.Empty(t, publisher.byMethod("x", rpc.SDPOfferMethod))

	// departed sender: dropped silently
	require.NoError(t, c.HandleLeave("a"))
	publisher.reset()
	require.NoError(t, c.HandleICECandidate("a", rpc.ICECandidateParams{Target: "b"}))
	assert.Empty(t, publisher.byMethod("b", rpc.ICECandidateMethod))
}

func TestPeerLinkLifecycle(t *testing.T) {
	c, _ := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))

	// lazy creation on first offer, initiator recorded
	_, ok := c.Link("v1", "a", "b")
	assert.False(t, ok)

	require.NoError(t, c.HandleOffer("a", rpc.SDPParams{Target: "b"}))
	link, ok := c.Link("v1", "a", "b")
	require.True(t, ok)
	assert.Equal(t, LinkOfferSent, link.State)
	assert.Equal(t, core.UserID("a"), link.Initiator)

	require.NoError(t, c.HandleAnswer("b", rpc.SDPParams{Target: "a"}))
	link, _ = c.Link("v1", "a", "b")
	assert.Equal(t, LinkAnswerReceived, link.State)

	require.NoError(t, c.HandleLinkState("a", rpc.LinkStateParams{Target: "b", State: rpc.LinkConnected}))
	link, _ = c.Link("v1", "a", "b")
	assert.Equal(t, LinkConnected, link.State)

	// screen-share start renegotiates without tearing the link down
	require.NoError(t, c.HandleOffer("a", rpc.SDPParams{Target: "b"}))
	link, _ = c.Link("v1", "a", "b")
	assert.Equal(t, LinkRenegotiating, link.State)
	assert.Equal(t, core.UserID("a"), link.Initiator)

	require.NoError(t, c.HandleAnswer("b", rpc.SDPParams{Target: "a"}))
	link, _ = c.Link("v1", "a", "b")
	assert.Equal(t, LinkConnected, link.State)

	// departure closes the pair's link
	require.NoError(t, c.HandleLeave("b"))
	_, ok = c.Link("v1", "a", "b")
	assert.False(t, ok)
}

func TestPeerLinkFailureReport(t *testing.T) {
	c, _ := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))

	require.NoError(t, c.HandleOffer("a", rpc.SDPParams{Target: "b"}))
	require.NoError(t, c.HandleLinkState("b", rpc.LinkStateParams{Target: "a", State: rpc.LinkFailed}))

	link, ok := c.Link("v1", "a", "b")
	require.True(t, ok)
	assert.Equal(t, LinkFailed, link.State)

	// a fresh offer retries the same pair
	require.NoError(t, c.HandleOffer("b", rpc.SDPParams{Target: "a"}))
	link, _ = c.Link("v1", "a", "b")
	assert.Equal(t, LinkOfferSent, link.State)
	assert.Equal(t, core.UserID("b"), link.Initiator)
}

func TestVoiceStateBroadcastCompleteness(t *testing.T) {
	c, publisher := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))
	require.NoError(t, c.HandleJoin("x", "v2"))
	publisher.reset()

	require.NoError(t, c.HandleVoiceState("a", rpc.VoiceStateParams{IsMuted: true}))

	changed := publisher.byMethod("b", rpc.VoiceStateChangedEvent)
	require.Len(t, changed, 1)
	params := changed[0].(*rpc.VoiceStateChangedRpc).Params
	assert.Equal(t, core.UserID("a"), params.UserID)
	assert.True(t, params.State.Muted.Value)

	// not echoed to the sender, not leaked outside the room
	assert.Empty(t, publisher.byMethod("a", rpc.VoiceStateChangedEvent))
	assert.Empty(t, publisher.byMethod("x", rpc.VoiceStateChangedEvent))

	// unchanged report broadcasts nothing
	publisher.reset()
	require.NoError(t, c.HandleVoiceState("a", rpc.VoiceStateParams{IsMuted: true}))
	assert.Empty(t, publisher.byMethod("b", rpc.VoiceStateChangedEvent))
}

func TestSpeakingEdgesOnly(t *testing.T) {
	c, publisher := newTestCoordinator(12)

	require.NoError(t, c.HandleJoin("a", "v1"))
	require.NoError(t, c.HandleJoin("b", "v1"))
	publisher.reset()

	require.NoError(t, c.HandleSpeaking("a", true))
	require.NoError(t, c.HandleSpeaking("a", true))
	require.NoError(t, c.HandleSpeaking("a", false))

	changed := publisher.byMethod("b", rpc.SpeakingChangedEvent)
	require.Len(t, changed, 2)
	assert.True(t, changed[0].(*rpc.SpeakingChangedRpc).Params.Speaking)
	assert.False(t, changed[1].(*rpc.SpeakingChangedRpc).Params.Speaking)
}
