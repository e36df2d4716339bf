package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySelfTogglesFlags(t *testing.T) {
	s := NewVoiceSession("u1", "c1")

	changed := s.State.ApplySelf(true, false, false)
	assert.True(t, changed)
	assert.True(t, s.State.Muted.Value)
	assert.Equal(t, FlagSourceSelf, s.State.Muted.Source)

	// same report again is a no-op
	changed = s.State.ApplySelf(true, false, false)
	assert.False(t, changed)
}

func TestModerationOverrideWins(t *testing.T) {
	s := NewVoiceSession("u1", "c1")

	s.State.Muted.Force(true)
	assert.True(t, s.State.Muted.Value)
	assert.Equal(t, FlagSourceModeration, s.State.Muted.Source)

	// the user cannot undo a server mute with a self-report
	changed := s.State.ApplySelf(false, false, false)
	assert.False(t, changed)
	assert.True(t, s.State.Muted.Value)

	// other flags still self-reportable while one is forced
	changed = s.State.ApplySelf(false, true, false)
	assert.True(t, changed)
	assert.True(t, s.State.Deafened.Value)
	assert.True(t, s.State.Muted.Value)
}

func TestClearForcedRestoresSelfControl(t *testing.T) {
	s := NewVoiceSession("u1", "c1")

	s.State.Muted.Force(true)
	s.State.Muted.ClearForced()
	assert.False(t, s.State.Muted.Value)

	changed := s.State.ApplySelf(true, false, false)
	assert.True(t, changed)
	assert.True(t, s.State.Muted.Value)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewVoiceSession("u1", "c1")
	c := s.Clone()

	s.State.Muted.Force(true)
	assert.False(t, c.State.Muted.Value)
	assert.Equal(t, s.ID, c.ID)
}
