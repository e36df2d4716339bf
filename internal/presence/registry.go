// Package presence is the single source of truth for who occupies which
// voice room. The registry (user -> session) and the room directory
// (channel -> ordered occupants) mutate under one lock, so a session is
// never visible in a room without being visible in the registry and vice
// versa.
package presence

import (
	"errors"
	"sync"

	"github.com/battala/voicemesh/internal/core"
)

// ErrRoomFull rejects a join once a room reaches the configured ceiling.
// Full-mesh cost grows quadratically, so the ceiling is enforced here
// instead of letting rooms degrade.
var ErrRoomFull = errors.New("room is full")

// LeaveResult describes a completed teardown: the ended session and the
// occupants remaining in its room, for the leave broadcast.
type LeaveResult struct {
	Session   *core.VoiceSession
	Remaining []*core.VoiceSession
}

// JoinResult describes a completed join. Existing holds the occupants that
// were already in the room: they become the initiators toward the newcomer.
// Prior is the implicit teardown of the user's previous session, nil if
// there was none.
type JoinResult struct {
	Session  *core.VoiceSession
	Existing []*core.VoiceSession
	Prior    *LeaveResult
}

type Registry struct {
	mu          sync.RWMutex
	maxRoomSize int

	sessions map[core.UserID]*core.VoiceSession
	rooms    map[core.ChannelID][]*core.VoiceSession
}

func NewRegistry(maxRoomSize int) *Registry {
	return &Registry{
		maxRoomSize: maxRoomSize,
		sessions:    make(map[core.UserID]*core.VoiceSession),
		rooms:       make(map[core.ChannelID][]*core.VoiceSession),
	}
}

// Join atomically ends any prior session of the user and creates the new
// one. Concurrent joins for the same user serialize on the registry lock,
// so exactly one session survives.
func (r *Registry) Join(userID core.UserID, channelID core.ChannelID) (*JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.sessions[userID]

	occupancy := len(r.rooms[channelID])
	if prior != nil && prior.ChannelID == channelID {
		occupancy--
	}
	if occupancy >= r.maxRoomSize {
		return nil, ErrRoomFull
	}

	result := &JoinResult{}
	if prior != nil {
		result.Prior = r.removeLocked(prior)
	}

	session := core.NewVoiceSession(userID, channelID)
	result.Existing = cloneAll(r.rooms[channelID])

	r.sessions[userID] = session
	r.rooms[channelID] = append(r.rooms[channelID], session)
	result.Session = session.Clone()

	return result, nil
}

// Leave is idempotent: ending a non-existent session reports ok=false and
// has no side effects.
func (r *Registry) Leave(userID core.UserID) (*LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[userID]
	if session == nil {
		return nil, false
	}

	return r.removeLocked(session), true
}

// LeaveChannel ends the session only if it is in the given channel, in one
// atomic step. Moderation uses this so an eviction cannot hit a session the
// target just opened elsewhere.
func (r *Registry) LeaveChannel(userID core.UserID, channelID core.ChannelID) (*LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[userID]
	if session == nil || session.ChannelID != channelID {
		return nil, false
	}

	return r.removeLocked(session), true
}

func (r *Registry) removeLocked(session *core.VoiceSession) *LeaveResult {
	delete(r.sessions, session.UserID)

	occupants := r.rooms[session.ChannelID]
	for i, s := range occupants {
		if s.UserID == session.UserID {
			occupants = append(occupants[:i], occupants[i+1:]...)
			break
		}
	}
	if len(occupants) == 0 {
		delete(r.rooms, session.ChannelID)
	} else {
		r.rooms[session.ChannelID] = occupants
	}

	return &LeaveResult{
		Session:   session.Clone(),
		Remaining: cloneAll(occupants),
	}
}

func (r *Registry) CurrentChannel(userID core.UserID) (core.ChannelID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session := r.sessions[userID]
	if session == nil {
		return "", false
	}

	return session.ChannelID, true
}

// Occupants returns a join-ordered snapshot of the room.
func (r *Registry) Occupants(channelID core.ChannelID) []*core.VoiceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.rooms[channelID])
}

// InRoom reports whether the user currently occupies the channel. The relay
// checks both ends with this before forwarding.
func (r *Registry) InRoom(channelID core.ChannelID, userID core.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session := r.sessions[userID]

	return session != nil && session.ChannelID == channelID
}

// ApplySelfState applies a self-reported flag update. Moderation-forced
// flags keep their forced value. Returns the updated session and whether
// anything changed.
func (r *Registry) ApplySelfState(userID core.UserID, muted, deafened, screenSharing bool) (*core.VoiceSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[userID]
	if session == nil {
		return nil, false
	}

	changed := session.State.ApplySelf(muted, deafened, screenSharing)

	return session.Clone(), changed
}

// SetSpeaking records best-effort speaking presence. Returns the session's
// channel and whether this was an edge transition worth broadcasting.
func (r *Registry) SetSpeaking(userID core.UserID, speaking bool) (core.ChannelID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[userID]
	if session == nil || session.Speaking == speaking {
		return "", false
	}
	session.Speaking = speaking

	return session.ChannelID, true
}

// ForceMute applies or clears a server mute on the target's session in the
// given channel. Absent target is a no-op.
func (r *Registry) ForceMute(channelID core.ChannelID, userID core.UserID, value bool) (*core.VoiceSession, bool) {
	return r.force(channelID, userID, value, func(s *core.VoiceState) *core.Flag { return &s.Muted })
}

// ForceDeafen is the deafen counterpart of ForceMute.
func (r *Registry) ForceDeafen(channelID core.ChannelID, userID core.UserID, value bool) (*core.VoiceSession, bool) {
	return r.force(channelID, userID, value, func(s *core.VoiceState) *core.Flag { return &s.Deafened })
}

func (r *Registry) force(channelID core.ChannelID, userID core.UserID, value bool, pick func(*core.VoiceState) *core.Flag) (*core.VoiceSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.sessions[userID]
	if session == nil || session.ChannelID != channelID {
		return nil, false
	}

	flag := pick(&session.State)
	if value {
		flag.Force(true)
	} else {
		flag.ClearForced()
	}

	return session.Clone(), true
}

func cloneAll(sessions []*core.VoiceSession) []*core.VoiceSession {
	out := make([]*core.VoiceSession, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}
