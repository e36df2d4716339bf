package coordinator

import (
	"sync"

	"github.com/battala/voicemesh/internal/core"
)

// LinkState is the coordinator's view of one peer pair's negotiation. The
// peers own the negotiation itself; this is bookkeeping driven by relayed
// signaling plus the peers' own link reports.
type LinkState string

const (
	LinkIdle           LinkState = "idle"
	LinkOfferSent      LinkState = "offer_sent"
	LinkAnswerReceived LinkState = "answer_received"
	LinkConnected      LinkState = "connected"
	LinkRenegotiating  LinkState = "renegotiating"
	LinkFailed         LinkState = "failed"
	LinkClosed         LinkState = "closed"
)

// pairKey identifies an unordered occupant pair. At most one link exists
// per pair per room.
type pairKey struct {
	low, high core.UserID
}

func newPairKey(a, b core.UserID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{low: a, high: b}
}

// PeerLink holds the negotiation state between two occupants. Initiator is
// the peer that sent the first offer; the announce-join fan-out makes the
// existing occupant the initiator, which avoids glare.
type PeerLink struct {
	ChannelID core.ChannelID
	Initiator core.UserID
	State     LinkState
}

type linkTable struct {
	mu    sync.Mutex
	links map[core.ChannelID]map[pairKey]*PeerLink
}

func newLinkTable() *linkTable {
	return &linkTable{
		links: make(map[core.ChannelID]map[pairKey]*PeerLink),
	}
}

// offer registers a relayed offer. Links are created lazily here, not
// eagerly for all pairs. An offer over a connected link means a track
// change: the link renegotiates without being torn down.
func (t *linkTable) offer(channelID core.ChannelID, from, to core.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.links[channelID]
	if room == nil {
		room = make(map[pairKey]*PeerLink)
		t.links[channelID] = room
	}

	key := newPairKey(from, to)
	link := room[key]
	if link == nil {
		room[key] = &PeerLink{
			ChannelID: channelID,
			Initiator: from,
			State:     LinkOfferSent,
		}
		return
	}

	switch link.State {
	case LinkConnected:
		link.State = LinkRenegotiating
	case LinkFailed, LinkClosed:
		// fresh retry after failure, same pair, new initiator
		link.Initiator = from
		link.State = LinkOfferSent
	}
}

// answer registers the relayed answer for an outstanding offer.
func (t *linkTable) answer(channelID core.ChannelID, from, to core.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	link := t.links[channelID][newPairKey(from, to)]
	if link == nil {
		return
	}

	switch link.State {
	case LinkOfferSent:
		link.State = LinkAnswerReceived
	case LinkRenegotiating:
		// track change answered, audio never stopped
		link.State = LinkConnected
	}
}

// report applies a peer's own view of the link outcome.
func (t *linkTable) report(channelID core.ChannelID, from, target core.UserID, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	link := t.links[channelID][newPairKey(from, target)]
	if link == nil || link.State == LinkClosed {
		return
	}

	if connected {
		link.State = LinkConnected
	} else {
		link.State = LinkFailed
	}
}

// closeFor closes every link the user participates in within the room.
func (t *linkTable) closeFor(channelID core.ChannelID, userID core.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.links[channelID]
	for key, link := range room {
		if key.low == userID || key.high == userID {
			link.State = LinkClosed
			delete(room, key)
		}
	}
	if len(room) == 0 {
		delete(t.links, channelID)
	}
}

// get returns a copy of the link for inspection.
func (t *linkTable) get(channelID core.ChannelID, a, b core.UserID) (PeerLink, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	link := t.links[channelID][newPairKey(a, b)]
	if link == nil {
		return PeerLink{}, false
	}

	return *link, true
}
