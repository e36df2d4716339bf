package core

import (
	"time"

	"github.com/google/uuid"
)

// FlagSource tells who last set a voice-state flag. A flag forced by
// moderation stays forced until a privileged command clears it: the owner's
// own state updates cannot undo it.
type FlagSource string

const (
	FlagSourceSelf       FlagSource = "self"
	FlagSourceModeration FlagSource = "moderation"
)

// Flag is a tagged voice-state value.
type Flag struct {
	Value  bool       `json:"value"`
	Source FlagSource `json:"source"`
}

// ApplySelf applies a self-reported value. Reports against a
// moderation-forced flag are ignored. Returns true if the value changed.
func (f *Flag) ApplySelf(value bool) bool {
	if f.Source == FlagSourceModeration {
		return false
	}
	if f.Value == value {
		return false
	}
	f.Value = value
	return true
}

// Force sets the flag on behalf of a moderator.
func (f *Flag) Force(value bool) {
	f.Value = value
	f.Source = FlagSourceModeration
}

// ClearForced lifts a moderation override and resets the flag.
func (f *Flag) ClearForced() {
	f.Value = false
	f.Source = FlagSourceSelf
}

// VoiceState is the set of flags every occupant of a room keeps in sync.
type VoiceState struct {
	Muted         Flag `json:"is_muted"`
	Deafened      Flag `json:"is_deafened"`
	ScreenSharing Flag `json:"is_screen_sharing"`
}

// ApplySelf applies a full self-report. Flags currently forced by moderation
// keep their forced value. Returns true if anything changed.
func (s *VoiceState) ApplySelf(muted, deafened, screenSharing bool) bool {
	changed := s.Muted.ApplySelf(muted)
	changed = s.Deafened.ApplySelf(deafened) || changed
	changed = s.ScreenSharing.ApplySelf(screenSharing) || changed
	return changed
}

// VoiceSession is one user's presence in one voice channel. At most one
// active session exists per user system-wide.
type VoiceSession struct {
	ID        string     `json:"id"`
	UserID    UserID     `json:"user_id"`
	ChannelID ChannelID  `json:"channel_id"`
	JoinedAt  time.Time  `json:"joined_at"`
	State     VoiceState `json:"state"`

	// Speaking is best-effort presence, not part of the durable state.
	Speaking bool `json:"-"`
}

func NewVoiceSession(userID UserID, channelID ChannelID) *VoiceSession {
	return &VoiceSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChannelID: channelID,
		JoinedAt:  time.Now().UTC(),
		State: VoiceState{
			Muted:         Flag{Source: FlagSourceSelf},
			Deafened:      Flag{Source: FlagSourceSelf},
			ScreenSharing: Flag{Source: FlagSourceSelf},
		},
	}
}

// Clone returns a copy safe to hand outside the presence store.
func (s *VoiceSession) Clone() *VoiceSession {
	c := *s
	return &c
}
